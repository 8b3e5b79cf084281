package transactions

import (
	"context"
	"fmt"

	"verdant-backend/internal/domain"

	"gorm.io/gorm"
)

// Service is the read model over the credit and token journals.
type Service struct {
	DB *gorm.DB
}

// ViewCreditTransfers lists custody movements an actor took part in, newest
// first.
func (s *Service) ViewCreditTransfers(ctx context.Context, actor string) ([]domain.CreditTransfer, error) {
	if actor == "" {
		return nil, fmt.Errorf("%w: actor is required", domain.ErrInvalidArgument)
	}
	var txs []domain.CreditTransfer
	if err := s.DB.WithContext(ctx).
		Where("from_actor = ? OR to_actor = ?", actor, actor).
		Order("created_at DESC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// ViewTokenTransfers lists payment-asset movements an actor took part in,
// newest first.
func (s *Service) ViewTokenTransfers(ctx context.Context, actor string) ([]domain.TokenTransfer, error) {
	if actor == "" {
		return nil, fmt.Errorf("%w: actor is required", domain.ErrInvalidArgument)
	}
	var txs []domain.TokenTransfer
	if err := s.DB.WithContext(ctx).
		Where("from_actor = ? OR to_actor = ?", actor, actor).
		Order("created_at DESC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}
