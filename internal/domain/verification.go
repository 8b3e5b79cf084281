package domain

import (
	"time"
)

// RequestStatus is the workflow-side status of a verification request.
type RequestStatus string

const (
	RequestPending     RequestStatus = "pending"
	RequestUnderReview RequestStatus = "under_review"
	RequestApproved    RequestStatus = "approved"
	RequestRejected    RequestStatus = "rejected"
)

// VerificationRequest is keyed by credit_id; resubmission overwrites the
// whole record.
type VerificationRequest struct {
	CreditID    uint64        `gorm:"column:credit_id;primaryKey;autoIncrement:false" json:"credit_id"`
	Requester   string        `gorm:"column:requester;not null" json:"requester"`
	ProjectID   string        `gorm:"column:project_id;not null" json:"project_id"`
	EvidenceURI string        `gorm:"column:evidence_uri;not null" json:"evidence_uri"`
	Status      RequestStatus `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	Verifier    *string       `gorm:"column:verifier" json:"verifier"`
	VerifiedAt  *time.Time    `gorm:"column:verified_at" json:"verified_at"`
	Notes       string        `gorm:"column:notes;not null;default:''" json:"notes"`
	CreatedAt   time.Time     `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"column:updated_at" json:"updated_at"`
}

func (VerificationRequest) TableName() string {
	return "verification_requests"
}

// Verifier is a member of the workflow's verifier set. Removal is idempotent.
type Verifier struct {
	Address   string    `gorm:"column:address;primaryKey" json:"address"`
	AddedBy   string    `gorm:"column:added_by;not null" json:"added_by"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Verifier) TableName() string {
	return "verifiers"
}
