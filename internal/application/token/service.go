package token

import (
	"context"
	"errors"
	"fmt"

	"verdant-backend/internal/auth"
	"verdant-backend/internal/domain"
	"verdant-backend/internal/events"

	"gorm.io/gorm"
)

// Transfer journal types.
const (
	TxMint     = "mint"
	TxTransfer = "transfer"
	TxSale     = "sale"
	TxFee      = "fee"
)

// Service is the payment-asset ledger. TransferTx is the fungible-transfer
// primitive the marketplace settles with; it participates in the caller's
// transaction so settlement is all-or-nothing.
type Service struct {
	DB       *gorm.DB
	Auth     auth.Provider
	Recorder *events.Recorder
}

// Initialize pins the asset code and the minting identity. Once-only.
func (s *Service) Initialize(ctx context.Context, issuer, asset string) error {
	if issuer == "" || asset == "" {
		return fmt.Errorf("%w: issuer and asset are required", domain.ErrInvalidArgument)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cfg domain.TokenConfig
		err := tx.First(&cfg).Error
		if err == nil {
			return fmt.Errorf("%w: token ledger", domain.ErrAlreadyInitialized)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&domain.TokenConfig{ID: 1, Issuer: issuer, Asset: asset}).Error
	})
}

func (s *Service) config(tx *gorm.DB) (*domain.TokenConfig, error) {
	var cfg domain.TokenConfig
	if err := tx.First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: token ledger", domain.ErrNotInitialized)
		}
		return nil, err
	}
	return &cfg, nil
}

// Mint credits new units to an account. Only the configured issuer may mint.
func (s *Service) Mint(ctx context.Context, minter, proof, to string, amount int64) error {
	if err := s.Auth.Prove(ctx, minter, proof); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidArgument)
	}
	if to == "" {
		return fmt.Errorf("%w: recipient is required", domain.ErrInvalidArgument)
	}

	var ev *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := s.config(tx)
		if err != nil {
			return err
		}
		if cfg.Issuer != minter {
			return fmt.Errorf("%w: %s is not the token issuer", domain.ErrNotAuthorized, minter)
		}
		if err := creditAccount(tx, to, amount); err != nil {
			return err
		}
		if err := tx.Create(&domain.TokenTransfer{Type: TxMint, ToActor: to, Amount: amount}).Error; err != nil {
			return err
		}
		ev, err = s.Recorder.Append(tx, "tokens_minted", map[string]interface{}{
			"to": to, "amount": amount, "asset": cfg.Asset,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.Recorder.Broadcast(ctx, ev)
	return nil
}

// Transfer moves units between accounts, gated on the sender's proof.
func (s *Service) Transfer(ctx context.Context, from, proof, to string, amount int64) error {
	if err := s.Auth.Prove(ctx, from, proof); err != nil {
		return err
	}
	var ev *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.TransferTx(tx, TxTransfer, from, to, amount); err != nil {
			return err
		}
		var err error
		ev, err = s.Recorder.Append(tx, "tokens_transferred", map[string]interface{}{
			"from": from, "to": to, "amount": amount,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.Recorder.Broadcast(ctx, ev)
	return nil
}

// TransferTx is the in-transaction transfer primitive. The caller owns the
// transaction boundary; a failure here aborts the whole enclosing operation.
func (s *Service) TransferTx(tx *gorm.DB, txType, from, to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidArgument)
	}
	if from == "" || to == "" {
		return fmt.Errorf("%w: from and to are required", domain.ErrInvalidArgument)
	}
	if from == to {
		// Self-transfers settle as no-ops, journaled for the audit trail.
		// Marketplace settlement relies on this: the fee leg of an
		// admin-as-buyer purchase and the payment leg of a seller
		// repurchasing their own listing both have identical endpoints.
		return tx.Create(&domain.TokenTransfer{Type: txType, FromActor: &from, ToActor: to, Amount: amount}).Error
	}

	var sender domain.TokenAccount
	if err := tx.Where("address = ?", from).First(&sender).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: insufficient balance for %s", domain.ErrInvalidState, from)
		}
		return err
	}
	if sender.Balance < amount {
		return fmt.Errorf("%w: insufficient balance for %s", domain.ErrInvalidState, from)
	}
	if err := tx.Model(&domain.TokenAccount{}).Where("address = ?", from).
		Update("balance", sender.Balance-amount).Error; err != nil {
		return err
	}
	if err := creditAccount(tx, to, amount); err != nil {
		return err
	}
	return tx.Create(&domain.TokenTransfer{Type: txType, FromActor: &from, ToActor: to, Amount: amount}).Error
}

// BalanceOf returns an account's balance; an absent account reads as zero.
func (s *Service) BalanceOf(ctx context.Context, address string) (int64, error) {
	var acct domain.TokenAccount
	err := s.DB.WithContext(ctx).Where("address = ?", address).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

func creditAccount(tx *gorm.DB, address string, amount int64) error {
	var acct domain.TokenAccount
	err := tx.Where("address = ?", address).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&domain.TokenAccount{Address: address, Balance: amount}).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&domain.TokenAccount{}).Where("address = ?", address).
		Update("balance", acct.Balance+amount).Error
}
