package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreditTransfer journals custody movements of credit units: issue, transfer,
// sale settlement, retire.
type CreditTransfer struct {
	TxID      uuid.UUID `gorm:"column:tx_id;type:uuid;primaryKey" json:"tx_id"`
	Type      string    `gorm:"column:type;type:varchar(20);not null" json:"type"`
	CreditID  uint64    `gorm:"column:credit_id;not null;index" json:"credit_id"`
	FromActor *string   `gorm:"column:from_actor;index" json:"from_actor"`
	ToActor   *string   `gorm:"column:to_actor;index" json:"to_actor"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (CreditTransfer) TableName() string {
	return "credit_transfers"
}

func (t *CreditTransfer) BeforeCreate(tx *gorm.DB) error {
	if t.TxID == uuid.Nil {
		t.TxID = uuid.New()
	}
	return nil
}

// TokenTransfer journals payment-asset movements: mint, transfer, sale
// proceeds, marketplace fee.
type TokenTransfer struct {
	TxID      uuid.UUID `gorm:"column:tx_id;type:uuid;primaryKey" json:"tx_id"`
	Type      string    `gorm:"column:type;type:varchar(20);not null" json:"type"`
	FromActor *string   `gorm:"column:from_actor;index" json:"from_actor"`
	ToActor   string    `gorm:"column:to_actor;not null;index" json:"to_actor"`
	Amount    int64     `gorm:"column:amount;not null" json:"amount"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (TokenTransfer) TableName() string {
	return "token_transfers"
}

func (t *TokenTransfer) BeforeCreate(tx *gorm.DB) error {
	if t.TxID == uuid.Nil {
		t.TxID = uuid.New()
	}
	return nil
}
