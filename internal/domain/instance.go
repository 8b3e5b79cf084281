package domain

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Per-instance configuration rows. Each is a singleton (id = 1) created by
// the module's initialize operation and never replaced.

type RegistryConfig struct {
	ID                    uint      `gorm:"column:id;primaryKey" json:"-"`
	Admin                 string    `gorm:"column:admin;not null" json:"admin"`
	VerificationAuthority string    `gorm:"column:verification_authority;not null" json:"verification_authority"`
	CreatedAt             time.Time `gorm:"column:created_at" json:"created_at"`
}

func (RegistryConfig) TableName() string {
	return "registry_config"
}

type WorkflowConfig struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"-"`
	Admin     string    `gorm:"column:admin;not null" json:"admin"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (WorkflowConfig) TableName() string {
	return "workflow_config"
}

type MarketConfig struct {
	ID           uint      `gorm:"column:id;primaryKey" json:"-"`
	Admin        string    `gorm:"column:admin;not null" json:"admin"`
	PaymentAsset string    `gorm:"column:payment_asset;not null" json:"payment_asset"`
	FeeBps       int64     `gorm:"column:fee_bps;not null" json:"fee_bps"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (MarketConfig) TableName() string {
	return "market_config"
}

// Counter allocates monotonically increasing ids per entity space.
type Counter struct {
	Name string `gorm:"column:name;primaryKey" json:"name"`
	Next uint64 `gorm:"column:next;not null" json:"next"`
}

func (Counter) TableName() string {
	return "counters"
}

// Counter names.
const (
	CounterCreditID  = "credit_id"
	CounterListingID = "listing_id"
)

// NextID returns the next id in the named space and advances the counter.
// Must run inside the mutating transaction so the increment commits with the
// entity it numbers. Spaces start at 1.
func NextID(tx *gorm.DB, name string) (uint64, error) {
	var c Counter
	err := tx.Where("name = ?", name).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c = Counter{Name: name, Next: 1}
		if err := tx.Create(&c).Error; err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}
	id := c.Next
	if err := tx.Model(&Counter{}).Where("name = ?", name).Update("next", id+1).Error; err != nil {
		return 0, fmt.Errorf("advance counter %s: %w", name, err)
	}
	return id, nil
}
