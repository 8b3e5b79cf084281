package verification

import (
	"context"
	"errors"
	"fmt"

	"verdant-backend/internal/application/registry"
	"verdant-backend/internal/auth"
	"verdant-backend/internal/domain"
	"verdant-backend/internal/events"
	"verdant-backend/internal/pkg/clock"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service is the verification workflow: submission, assignment and the
// approve/reject decision. It is the only component trusted to flip a
// credit's verification flag, which it does through the registry inside its
// own transaction so the request decision and the credit status commit
// together.
type Service struct {
	DB       *gorm.DB
	Auth     auth.Provider
	Recorder *events.Recorder
	Registry *registry.Service
	Clock    clock.Clock
}

func (s *Service) now() clock.Clock {
	if s.Clock != nil {
		return s.Clock
	}
	return clock.System{}
}

// Initialize sets the workflow admin. Verifier set starts empty. Once-only.
func (s *Service) Initialize(ctx context.Context, admin string) error {
	if admin == "" {
		return fmt.Errorf("%w: admin is required", domain.ErrInvalidArgument)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cfg domain.WorkflowConfig
		err := tx.First(&cfg).Error
		if err == nil {
			return fmt.Errorf("%w: verification workflow", domain.ErrAlreadyInitialized)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&domain.WorkflowConfig{ID: 1, Admin: admin}).Error
	})
}

func (s *Service) config(tx *gorm.DB) (*domain.WorkflowConfig, error) {
	var cfg domain.WorkflowConfig
	if err := tx.First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: verification workflow", domain.ErrNotInitialized)
		}
		return nil, err
	}
	return &cfg, nil
}

// AddVerifier adds an identity to the verifier set. Admin only.
func (s *Service) AddVerifier(ctx context.Context, admin, proof, verifier string) error {
	if err := s.Auth.Prove(ctx, admin, proof); err != nil {
		return err
	}
	if verifier == "" {
		return fmt.Errorf("%w: verifier is required", domain.ErrInvalidArgument)
	}

	var ev *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := s.config(tx)
		if err != nil {
			return err
		}
		if cfg.Admin != admin {
			return fmt.Errorf("%w: %s is not the workflow admin", domain.ErrNotAuthorized, admin)
		}
		var existing domain.Verifier
		err = tx.Where("address = ?", verifier).First(&existing).Error
		if err == nil {
			// Already a member; membership is a set.
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(&domain.Verifier{Address: verifier, AddedBy: admin}).Error; err != nil {
			return err
		}
		ev, err = s.Recorder.Append(tx, "verifier_added", map[string]interface{}{"verifier": verifier})
		return err
	})
	if err != nil {
		return err
	}
	s.Recorder.Broadcast(ctx, ev)
	return nil
}

// RemoveVerifier removes an identity from the verifier set. Admin only,
// idempotent.
func (s *Service) RemoveVerifier(ctx context.Context, admin, proof, verifier string) error {
	if err := s.Auth.Prove(ctx, admin, proof); err != nil {
		return err
	}

	var ev *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := s.config(tx)
		if err != nil {
			return err
		}
		if cfg.Admin != admin {
			return fmt.Errorf("%w: %s is not the workflow admin", domain.ErrNotAuthorized, admin)
		}
		if err := tx.Where("address = ?", verifier).Delete(&domain.Verifier{}).Error; err != nil {
			return err
		}
		ev, err = s.Recorder.Append(tx, "verifier_removed", map[string]interface{}{"verifier": verifier})
		return err
	})
	if err != nil {
		return err
	}
	s.Recorder.Broadcast(ctx, ev)
	return nil
}

type SubmitInput struct {
	Requester   string `json:"requester"`
	CreditID    uint64 `json:"credit_id"`
	ProjectID   string `json:"project_id"`
	EvidenceURI string `json:"evidence_uri"`
}

// SubmitVerification creates or overwrites the request for a credit with
// status pending, no verifier, empty notes. Any registered actor may submit.
func (s *Service) SubmitVerification(ctx context.Context, proof string, in SubmitInput) error {
	if err := s.Auth.Prove(ctx, in.Requester, proof); err != nil {
		return err
	}
	if in.CreditID == 0 {
		return fmt.Errorf("%w: credit_id is required", domain.ErrInvalidArgument)
	}

	var ev *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.config(tx); err != nil {
			return err
		}
		req := domain.VerificationRequest{
			CreditID:    in.CreditID,
			Requester:   in.Requester,
			ProjectID:   in.ProjectID,
			EvidenceURI: in.EvidenceURI,
			Status:      domain.RequestPending,
			Verifier:    nil,
			VerifiedAt:  nil,
			Notes:       "",
		}
		// Resubmission overwrites the whole record.
		if err := tx.Where("credit_id = ?", in.CreditID).Delete(&domain.VerificationRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&req).Error; err != nil {
			return err
		}
		var err error
		ev, err = s.Recorder.Append(tx, "verification_submitted", map[string]interface{}{
			"credit_id": in.CreditID, "requester": in.Requester,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.Recorder.Broadcast(ctx, ev)
	return nil
}

// AssignVerifier marks a request under review and records the reviewer.
// Caller must be the admin or a member of the verifier set.
func (s *Service) AssignVerifier(ctx context.Context, caller, proof string, creditID uint64, verifier string) error {
	if err := s.Auth.Prove(ctx, caller, proof); err != nil {
		return err
	}
	if verifier == "" {
		return fmt.Errorf("%w: verifier is required", domain.ErrInvalidArgument)
	}

	var ev *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := s.config(tx)
		if err != nil {
			return err
		}
		if cfg.Admin != caller {
			var member domain.Verifier
			if err := tx.Where("address = ?", caller).First(&member).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s is neither admin nor verifier", domain.ErrNotAuthorized, caller)
				}
				return err
			}
		}

		var req domain.VerificationRequest
		if err := tx.Where("credit_id = ?", creditID).First(&req).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: verification request for credit %d", domain.ErrNotFound, creditID)
			}
			return err
		}
		if err := tx.Model(&domain.VerificationRequest{}).Where("credit_id = ?", creditID).
			Updates(map[string]interface{}{
				"status":   domain.RequestUnderReview,
				"verifier": verifier,
			}).Error; err != nil {
			return err
		}
		ev, err = s.Recorder.Append(tx, "verifier_assigned", map[string]interface{}{
			"credit_id": creditID, "verifier": verifier,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.Recorder.Broadcast(ctx, ev)
	return nil
}

// ApproveVerification records the terminal approval and, in the same
// transaction, flips the credit to verified in the registry. Assigned
// verifier only.
func (s *Service) ApproveVerification(ctx context.Context, verifier, proof string, creditID uint64, notes string) error {
	return s.decide(ctx, verifier, proof, creditID, notes, true)
}

// RejectVerification records the terminal rejection and flips the credit to
// rejected in the registry. Assigned verifier only.
func (s *Service) RejectVerification(ctx context.Context, verifier, proof string, creditID uint64, reason string) error {
	return s.decide(ctx, verifier, proof, creditID, reason, false)
}

func (s *Service) decide(ctx context.Context, verifier, proof string, creditID uint64, notes string, approve bool) error {
	if err := s.Auth.Prove(ctx, verifier, proof); err != nil {
		return err
	}

	var evs []*domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req domain.VerificationRequest
		if err := tx.Where("credit_id = ?", creditID).First(&req).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: verification request for credit %d", domain.ErrNotFound, creditID)
			}
			return err
		}
		if req.Verifier == nil || *req.Verifier != verifier {
			return fmt.Errorf("%w: %s is not the assigned verifier", domain.ErrNotAuthorized, verifier)
		}
		if req.Status != domain.RequestUnderReview {
			return fmt.Errorf("%w: request for credit %d is %s, not under review", domain.ErrInvalidState, creditID, req.Status)
		}

		status := domain.RequestRejected
		creditStatus := domain.VerificationRejected
		eventName := "verification_rejected"
		if approve {
			status = domain.RequestApproved
			creditStatus = domain.VerificationVerified
			eventName = "verification_approved"
		}

		now := s.now().Now()
		if err := tx.Model(&domain.VerificationRequest{}).Where("credit_id = ?", creditID).
			Updates(map[string]interface{}{
				"status":      status,
				"verified_at": now,
				"notes":       notes,
			}).Error; err != nil {
			return err
		}

		// Cross-entity update: the credit flips iff this decision commits.
		regEv, err := s.Registry.ApplyVerificationTx(tx, creditID, creditStatus)
		if err != nil {
			return err
		}
		ev, err := s.Recorder.Append(tx, eventName, map[string]interface{}{
			"credit_id": creditID, "verifier": verifier,
		})
		if err != nil {
			return err
		}
		evs = append(evs, regEv, ev)
		return nil
	})
	if err != nil {
		return err
	}
	s.Recorder.Broadcast(ctx, evs...)
	log.Info().Uint64("credit_id", creditID).Str("verifier", verifier).Bool("approved", approve).
		Msg("verification decided")
	return nil
}

// GetRequest returns the request for a credit.
func (s *Service) GetRequest(ctx context.Context, creditID uint64) (*domain.VerificationRequest, error) {
	var req domain.VerificationRequest
	if err := s.DB.WithContext(ctx).Where("credit_id = ?", creditID).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: verification request for credit %d", domain.ErrNotFound, creditID)
		}
		return nil, err
	}
	return &req, nil
}

// IsVerifier reports membership in the verifier set.
func (s *Service) IsVerifier(ctx context.Context, address string) (bool, error) {
	var member domain.Verifier
	err := s.DB.WithContext(ctx).Where("address = ?", address).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetVerifiers returns the verifier set.
func (s *Service) GetVerifiers(ctx context.Context) ([]domain.Verifier, error) {
	var members []domain.Verifier
	if err := s.DB.WithContext(ctx).Order("created_at ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
