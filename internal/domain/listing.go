package domain

import (
	"time"
)

// ListingStatus is the lifecycle of a marketplace listing. Sold and Cancelled
// are terminal.
type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingSold      ListingStatus = "sold"
	ListingCancelled ListingStatus = "cancelled"
)

// Listing offers a credit's full tonnage at a fixed per-ton price in the
// smallest payment-asset unit. The active set is the status index: a listing
// is purchasable iff status == active.
type Listing struct {
	ListingID   uint64        `gorm:"column:listing_id;primaryKey;autoIncrement:false" json:"listing_id"`
	CreditID    uint64        `gorm:"column:credit_id;not null;index" json:"credit_id"`
	Seller      string        `gorm:"column:seller;not null;index" json:"seller"`
	PricePerTon int64         `gorm:"column:price_per_ton;not null" json:"price_per_ton"`
	AmountTons  int64         `gorm:"column:amount_tons;not null" json:"amount_tons"`
	Status      ListingStatus `gorm:"column:status;type:varchar(20);not null;default:'active';index" json:"status"`
	CreatedAt   time.Time     `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"column:updated_at" json:"updated_at"`
}

func (Listing) TableName() string {
	return "listings"
}
