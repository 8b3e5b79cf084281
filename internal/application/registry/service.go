package registry

import (
	"context"
	"errors"
	"fmt"

	"verdant-backend/internal/auth"
	"verdant-backend/internal/domain"
	"verdant-backend/internal/events"
	"verdant-backend/internal/pkg/clock"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service is the credit registry: issuance, verification status, custody and
// retirement of discrete credit units.
type Service struct {
	DB       *gorm.DB
	Auth     auth.Provider
	Recorder *events.Recorder
	Clock    clock.Clock
}

func (s *Service) now() clock.Clock {
	if s.Clock != nil {
		return s.Clock
	}
	return clock.System{}
}

// Initialize sets the registry admin and the identity trusted to update
// verification status. Once-only.
func (s *Service) Initialize(ctx context.Context, admin, verificationAuthority string) error {
	if admin == "" || verificationAuthority == "" {
		return fmt.Errorf("%w: admin and verification authority are required", domain.ErrInvalidArgument)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cfg domain.RegistryConfig
		err := tx.First(&cfg).Error
		if err == nil {
			return fmt.Errorf("%w: credit registry", domain.ErrAlreadyInitialized)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&domain.RegistryConfig{
			ID:                    1,
			Admin:                 admin,
			VerificationAuthority: verificationAuthority,
		}).Error
	})
}

func (s *Service) config(tx *gorm.DB) (*domain.RegistryConfig, error) {
	var cfg domain.RegistryConfig
	if err := tx.First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: credit registry", domain.ErrNotInitialized)
		}
		return nil, err
	}
	return &cfg, nil
}

type IssueCreditInput struct {
	Issuer      string `json:"issuer"`
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
	VintageYear int    `json:"vintage_year"`
	AmountTons  int64  `json:"amount_tons"`
}

// IssueCredit allocates the next credit id, records metadata with status
// pending and the issuer as first owner. No upper bound on amount_tons.
func (s *Service) IssueCredit(ctx context.Context, proof string, in IssueCreditInput) (*domain.Credit, error) {
	if err := s.Auth.Prove(ctx, in.Issuer, proof); err != nil {
		return nil, err
	}
	if in.ProjectID == "" {
		return nil, fmt.Errorf("%w: project_id is required", domain.ErrInvalidArgument)
	}
	if in.AmountTons < 0 {
		return nil, fmt.Errorf("%w: amount_tons cannot be negative", domain.ErrInvalidArgument)
	}

	var credit *domain.Credit
	var ev *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.config(tx); err != nil {
			return err
		}
		id, err := domain.NextID(tx, domain.CounterCreditID)
		if err != nil {
			return err
		}
		credit = &domain.Credit{
			CreditID:           id,
			ProjectID:          in.ProjectID,
			ProjectName:        in.ProjectName,
			VintageYear:        in.VintageYear,
			AmountTons:         in.AmountTons,
			VerificationStatus: domain.VerificationPending,
			Issuer:             in.Issuer,
			CreatedAt:          s.now().Now(),
		}
		if err := tx.Create(credit).Error; err != nil {
			return err
		}
		if err := tx.Create(&domain.CreditOwnership{CreditID: id, Owner: in.Issuer}).Error; err != nil {
			return err
		}
		if err := tx.Create(&domain.CreditTransfer{
			Type: "issue", CreditID: id, ToActor: &in.Issuer,
		}).Error; err != nil {
			return err
		}
		ev, err = s.Recorder.Append(tx, "credit_issued", map[string]interface{}{
			"credit_id": id, "issuer": in.Issuer, "amount_tons": in.AmountTons,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Recorder.Broadcast(ctx, ev)
	log.Info().Uint64("credit_id", credit.CreditID).Str("issuer", in.Issuer).Msg("credit issued")
	return credit, nil
}

// UpdateVerification overwrites a credit's verification status. Only the
// configured verification authority may call it.
func (s *Service) UpdateVerification(ctx context.Context, authority, proof string, creditID uint64, status domain.VerificationStatus) error {
	if err := s.Auth.Prove(ctx, authority, proof); err != nil {
		return err
	}
	if !domain.ValidVerificationStatus(status) {
		return fmt.Errorf("%w: unknown verification status %q", domain.ErrInvalidArgument, status)
	}

	var ev *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := s.config(tx)
		if err != nil {
			return err
		}
		if cfg.VerificationAuthority != authority {
			return fmt.Errorf("%w: %s is not the verification authority", domain.ErrNotAuthorized, authority)
		}
		ev, err = s.ApplyVerificationTx(tx, creditID, status)
		return err
	})
	if err != nil {
		return err
	}
	s.Recorder.Broadcast(ctx, ev)
	return nil
}

// ApplyVerificationTx flips a credit's verification status inside the
// caller's transaction. This is the trusted cross-entity path used by the
// verification workflow on approval/rejection; the caller is responsible for
// authorization.
func (s *Service) ApplyVerificationTx(tx *gorm.DB, creditID uint64, status domain.VerificationStatus) (*domain.LedgerEvent, error) {
	var credit domain.Credit
	if err := tx.Where("credit_id = ?", creditID).First(&credit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: credit %d", domain.ErrNotFound, creditID)
		}
		return nil, err
	}
	if err := tx.Model(&domain.Credit{}).Where("credit_id = ?", creditID).
		Update("verification_status", status).Error; err != nil {
		return nil, err
	}
	return s.Recorder.Append(tx, "verification_updated", map[string]interface{}{
		"credit_id": creditID, "status": status,
	})
}

// Transfer moves custody of a credit. No verification-status precondition.
func (s *Service) Transfer(ctx context.Context, from, proof, to string, creditID uint64) error {
	if err := s.Auth.Prove(ctx, from, proof); err != nil {
		return err
	}
	if to == "" {
		return fmt.Errorf("%w: recipient is required", domain.ErrInvalidArgument)
	}

	var ev *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.TransferTx(tx, "transfer", from, to, creditID); err != nil {
			return err
		}
		var err error
		ev, err = s.Recorder.Append(tx, "credit_transferred", map[string]interface{}{
			"credit_id": creditID, "from": from, "to": to,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.Recorder.Broadcast(ctx, ev)
	return nil
}

// TransferTx moves custody inside the caller's transaction. Used by Transfer
// and by marketplace settlement. A retired credit (no ownership row) is
// NotFound; an owner mismatch is NotAuthorized.
func (s *Service) TransferTx(tx *gorm.DB, txType, from, to string, creditID uint64) error {
	var own domain.CreditOwnership
	if err := tx.Where("credit_id = ?", creditID).First(&own).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: credit %d has no owner", domain.ErrNotFound, creditID)
		}
		return err
	}
	if own.Owner != from {
		return fmt.Errorf("%w: %s does not own credit %d", domain.ErrNotAuthorized, from, creditID)
	}
	if err := tx.Model(&domain.CreditOwnership{}).Where("credit_id = ?", creditID).
		Update("owner", to).Error; err != nil {
		return err
	}
	return tx.Create(&domain.CreditTransfer{
		Type: txType, CreditID: creditID, FromActor: &from, ToActor: &to,
	}).Error
}

type RetireCreditInput struct {
	Owner       string  `json:"owner"`
	CreditID    uint64  `json:"credit_id"`
	Purpose     *string `json:"purpose"`
	Beneficiary *string `json:"beneficiary"`
}

// RetireCredit permanently removes a verified credit from circulation and
// issues a retirement certificate. Irreversible.
func (s *Service) RetireCredit(ctx context.Context, proof string, in RetireCreditInput) (*domain.RetirementCertificate, error) {
	if err := s.Auth.Prove(ctx, in.Owner, proof); err != nil {
		return nil, err
	}

	var cert *domain.RetirementCertificate
	var ev *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var own domain.CreditOwnership
		if err := tx.Where("credit_id = ?", in.CreditID).First(&own).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: credit %d has no owner", domain.ErrNotFound, in.CreditID)
			}
			return err
		}
		if own.Owner != in.Owner {
			return fmt.Errorf("%w: %s does not own credit %d", domain.ErrNotAuthorized, in.Owner, in.CreditID)
		}

		var credit domain.Credit
		if err := tx.Where("credit_id = ?", in.CreditID).First(&credit).Error; err != nil {
			return err
		}
		if credit.VerificationStatus != domain.VerificationVerified {
			return fmt.Errorf("%w: only verified credits can be retired", domain.ErrInvalidState)
		}

		if err := tx.Where("credit_id = ?", in.CreditID).Delete(&domain.CreditOwnership{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&domain.CreditTransfer{
			Type: "retire", CreditID: in.CreditID, FromActor: &in.Owner,
		}).Error; err != nil {
			return err
		}

		now := s.now().Now()
		cert = &domain.RetirementCertificate{
			CreditID:          in.CreditID,
			RetiredBy:         in.Owner,
			AmountTons:        credit.AmountTons,
			Purpose:           in.Purpose,
			Beneficiary:       in.Beneficiary,
			CertificateNumber: fmt.Sprintf("CERT-%d-%d", in.CreditID, now.UnixMilli()),
			RetiredAt:         now,
		}
		if err := tx.Create(cert).Error; err != nil {
			return err
		}

		var err error
		ev, err = s.Recorder.Append(tx, "credit_retired", map[string]interface{}{
			"credit_id": in.CreditID, "owner": in.Owner, "amount_tons": credit.AmountTons,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Recorder.Broadcast(ctx, ev)
	log.Info().Uint64("credit_id", in.CreditID).Str("owner", in.Owner).Msg("credit retired")
	return cert, nil
}

// GetCredit returns credit metadata.
func (s *Service) GetCredit(ctx context.Context, creditID uint64) (*domain.Credit, error) {
	var credit domain.Credit
	if err := s.DB.WithContext(ctx).Where("credit_id = ?", creditID).First(&credit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: credit %d", domain.ErrNotFound, creditID)
		}
		return nil, err
	}
	return &credit, nil
}

// GetOwner returns the current owner, or nil for a retired or unknown credit.
func (s *Service) GetOwner(ctx context.Context, creditID uint64) (*string, error) {
	var own domain.CreditOwnership
	err := s.DB.WithContext(ctx).Where("credit_id = ?", creditID).First(&own).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &own.Owner, nil
}

// IsVerified reports whether the credit's status is verified.
func (s *Service) IsVerified(ctx context.Context, creditID uint64) (bool, error) {
	credit, err := s.GetCredit(ctx, creditID)
	if err != nil {
		return false, err
	}
	return credit.VerificationStatus == domain.VerificationVerified, nil
}

// ViewActorRetirements lists an actor's retirement certificates, newest first.
func (s *Service) ViewActorRetirements(ctx context.Context, actor string) ([]domain.RetirementCertificate, error) {
	if actor == "" {
		return nil, fmt.Errorf("%w: actor is required", domain.ErrInvalidArgument)
	}
	var certs []domain.RetirementCertificate
	if err := s.DB.WithContext(ctx).Where("retired_by = ?", actor).
		Order("created_at DESC").Find(&certs).Error; err != nil {
		return nil, err
	}
	return certs, nil
}

// ViewOneRetirement returns one certificate by id.
func (s *Service) ViewOneRetirement(ctx context.Context, certificateID string) (*domain.RetirementCertificate, error) {
	var cert domain.RetirementCertificate
	if err := s.DB.WithContext(ctx).Where("certificate_id = ?", certificateID).First(&cert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: retirement certificate", domain.ErrNotFound)
		}
		return nil, err
	}
	return &cert, nil
}
