package auth

import (
	"context"
	"errors"
	"fmt"

	"verdant-backend/internal/domain"
	"verdant-backend/internal/events"
	"verdant-backend/internal/pkg/validation"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Provider proves that the current call is authorized by the named actor.
// Every mutating operation validates the proof before touching state.
type Provider interface {
	Prove(ctx context.Context, actor, proof string) error
}

// Service is the actor registry and the bcrypt-backed Provider. Recorder is
// optional; when set, registrations are journaled.
type Service struct {
	DB       *gorm.DB
	Recorder *events.Recorder
}

// RegisterActorInput for actor registration.
type RegisterActorInput struct {
	Address     string `json:"address"`
	DisplayName string `json:"display_name"`
	ProofKey    string `json:"proof_key"`
}

// RegisterActor creates an actor with a bcrypt-hashed proof key.
func (s *Service) RegisterActor(ctx context.Context, in RegisterActorInput) (*domain.Actor, error) {
	if !validation.IsValidAddress(in.Address) {
		return nil, fmt.Errorf("%w: invalid actor address", domain.ErrInvalidArgument)
	}
	if !validation.IsValidProofKey(in.ProofKey) {
		return nil, fmt.Errorf("%w: proof key too weak", domain.ErrInvalidArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.ProofKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	actor := &domain.Actor{
		Address:     in.Address,
		DisplayName: in.DisplayName,
		KeyHash:     string(hash),
	}
	var ev *domain.LedgerEvent
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The duplicate check shares the insert's transaction so a
		// racing registration surfaces as ErrInvalidState, not as a raw
		// constraint violation.
		var existing domain.Actor
		err := tx.Where("address = ?", in.Address).First(&existing).Error
		if err == nil {
			return fmt.Errorf("%w: actor %s already registered", domain.ErrInvalidState, in.Address)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(actor).Error; err != nil {
			return err
		}
		if s.Recorder == nil {
			return nil
		}
		ev, err = s.Recorder.Append(tx, "actor_registered", map[string]interface{}{
			"address": in.Address,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.Recorder != nil {
		s.Recorder.Broadcast(ctx, ev)
	}
	return actor, nil
}

// Prove verifies the proof key for the named actor. Unknown actor and wrong
// key are indistinguishable to the caller.
func (s *Service) Prove(ctx context.Context, actor, proof string) error {
	if actor == "" || proof == "" {
		return fmt.Errorf("%w: actor and proof are required", domain.ErrNotAuthorized)
	}
	var a domain.Actor
	if err := s.DB.WithContext(ctx).Where("address = ?", actor).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: proof rejected for %s", domain.ErrNotAuthorized, actor)
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.KeyHash), []byte(proof)) != nil {
		return fmt.Errorf("%w: proof rejected for %s", domain.ErrNotAuthorized, actor)
	}
	return nil
}

// GetActor returns a registered actor.
func (s *Service) GetActor(ctx context.Context, address string) (*domain.Actor, error) {
	var a domain.Actor
	if err := s.DB.WithContext(ctx).Where("address = ?", address).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: actor %s", domain.ErrNotFound, address)
		}
		return nil, err
	}
	return &a, nil
}
