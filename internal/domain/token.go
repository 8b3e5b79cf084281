package domain

import (
	"time"
)

// TokenAccount holds an actor's balance of the payment asset, in its smallest
// unit. Single asset per deployment.
type TokenAccount struct {
	Address   string    `gorm:"column:address;primaryKey" json:"address"`
	Balance   int64     `gorm:"column:balance;not null;default:0" json:"balance"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (TokenAccount) TableName() string {
	return "token_accounts"
}

// TokenConfig pins the ledger's asset code and the only identity allowed to
// mint. Singleton, set once.
type TokenConfig struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"-"`
	Issuer    string    `gorm:"column:issuer;not null" json:"issuer"`
	Asset     string    `gorm:"column:asset;not null" json:"asset"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (TokenConfig) TableName() string {
	return "token_config"
}
