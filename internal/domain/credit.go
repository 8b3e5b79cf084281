package domain

import (
	"time"
)

// VerificationStatus is the registry-side status of a credit.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// ValidVerificationStatus reports whether s is one of the three known values.
func ValidVerificationStatus(s VerificationStatus) bool {
	switch s {
	case VerificationPending, VerificationVerified, VerificationRejected:
		return true
	}
	return false
}

// Credit is one discrete unit of amount_tons CO2e. Metadata is immutable after
// issuance except verification_status, which only the configured verification
// authority may flip.
type Credit struct {
	CreditID           uint64             `gorm:"column:credit_id;primaryKey;autoIncrement:false" json:"credit_id"`
	ProjectID          string             `gorm:"column:project_id;not null" json:"project_id"`
	ProjectName        string             `gorm:"column:project_name;not null" json:"project_name"`
	VintageYear        int                `gorm:"column:vintage_year;not null" json:"vintage_year"`
	AmountTons         int64              `gorm:"column:amount_tons;not null" json:"amount_tons"`
	VerificationStatus VerificationStatus `gorm:"column:verification_status;type:varchar(20);not null;default:'pending'" json:"verification_status"`
	Issuer             string             `gorm:"column:issuer;not null" json:"issuer"`
	CreatedAt          time.Time          `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"column:updated_at" json:"updated_at"`
}

func (Credit) TableName() string {
	return "credits"
}

// CreditOwnership maps credit_id -> current owner. A credit with no ownership
// row is retired and never regains an owner.
type CreditOwnership struct {
	CreditID  uint64    `gorm:"column:credit_id;primaryKey;autoIncrement:false" json:"credit_id"`
	Owner     string    `gorm:"column:owner;not null;index" json:"owner"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (CreditOwnership) TableName() string {
	return "credit_ownerships"
}
