package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RetirementCertificate is issued when a verified credit is permanently
// retired; it is the offset claim the retiring owner keeps.
type RetirementCertificate struct {
	CertificateID     uuid.UUID `gorm:"column:certificate_id;type:uuid;primaryKey" json:"certificate_id"`
	CreditID          uint64    `gorm:"column:credit_id;not null;index" json:"credit_id"`
	RetiredBy         string    `gorm:"column:retired_by;not null;index" json:"retired_by"`
	AmountTons        int64     `gorm:"column:amount_tons;not null" json:"amount_tons"`
	Purpose           *string   `gorm:"column:purpose" json:"purpose"`
	Beneficiary       *string   `gorm:"column:beneficiary" json:"beneficiary"`
	CertificateNumber string    `gorm:"column:certificate_number;uniqueIndex;not null" json:"certificate_number"`
	RetiredAt         time.Time `gorm:"column:retired_at;not null" json:"retired_at"`
	CreatedAt         time.Time `gorm:"column:created_at" json:"created_at"`
}

func (RetirementCertificate) TableName() string {
	return "retirement_certificates"
}

func (r *RetirementCertificate) BeforeCreate(tx *gorm.DB) error {
	if r.CertificateID == uuid.Nil {
		r.CertificateID = uuid.New()
	}
	return nil
}
