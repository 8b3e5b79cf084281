package market

import (
	"context"
	"errors"
	"fmt"
	"math"

	"verdant-backend/internal/application/registry"
	"verdant-backend/internal/application/token"
	"verdant-backend/internal/auth"
	"verdant-backend/internal/domain"
	"verdant-backend/internal/events"
	"verdant-backend/internal/pkg/clock"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MaxFeeBps caps the marketplace fee at 10%.
const MaxFeeBps = 1000

// Service is the marketplace: fixed-price listings of credits, settled in
// the payment asset with a basis-point fee to the marketplace admin.
// Settlement is delivery-versus-payment: payment legs, the custody move and
// the Sold flip commit in one transaction.
type Service struct {
	DB       *gorm.DB
	Auth     auth.Provider
	Recorder *events.Recorder
	Registry *registry.Service
	Tokens   *token.Service
	Clock    clock.Clock
}

func (s *Service) now() clock.Clock {
	if s.Clock != nil {
		return s.Clock
	}
	return clock.System{}
}

// Initialize stores the marketplace admin, payment asset code and fee.
// Once-only. The fee cap applies here as well as on later updates.
func (s *Service) Initialize(ctx context.Context, admin, paymentAsset string, feeBps int64) error {
	if admin == "" || paymentAsset == "" {
		return fmt.Errorf("%w: admin and payment asset are required", domain.ErrInvalidArgument)
	}
	if feeBps < 0 || feeBps > MaxFeeBps {
		return fmt.Errorf("%w: fee must be between 0 and %d bps", domain.ErrInvalidArgument, MaxFeeBps)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cfg domain.MarketConfig
		err := tx.First(&cfg).Error
		if err == nil {
			return fmt.Errorf("%w: marketplace", domain.ErrAlreadyInitialized)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&domain.MarketConfig{
			ID:           1,
			Admin:        admin,
			PaymentAsset: paymentAsset,
			FeeBps:       feeBps,
		}).Error
	})
}

func (s *Service) config(tx *gorm.DB) (*domain.MarketConfig, error) {
	var cfg domain.MarketConfig
	if err := tx.First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: marketplace", domain.ErrNotInitialized)
		}
		return nil, err
	}
	return &cfg, nil
}

type CreateListingInput struct {
	Seller      string `json:"seller"`
	CreditID    uint64 `json:"credit_id"`
	PricePerTon int64  `json:"price_per_ton"`
	AmountTons  int64  `json:"amount_tons"`
}

// CreateListing lists a credit at a fixed per-ton price. The seller must own
// the credit and the credit must be verified.
func (s *Service) CreateListing(ctx context.Context, proof string, in CreateListingInput) (*domain.Listing, error) {
	if err := s.Auth.Prove(ctx, in.Seller, proof); err != nil {
		return nil, err
	}
	if in.PricePerTon <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", domain.ErrInvalidArgument)
	}
	if in.AmountTons <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidArgument)
	}
	if in.PricePerTon > math.MaxInt64/in.AmountTons {
		return nil, fmt.Errorf("%w: listing value overflows", domain.ErrInvalidArgument)
	}

	var listing *domain.Listing
	var ev *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.config(tx); err != nil {
			return err
		}

		var own domain.CreditOwnership
		if err := tx.Where("credit_id = ?", in.CreditID).First(&own).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: credit %d has no owner", domain.ErrNotFound, in.CreditID)
			}
			return err
		}
		if own.Owner != in.Seller {
			return fmt.Errorf("%w: %s does not own credit %d", domain.ErrNotAuthorized, in.Seller, in.CreditID)
		}
		var credit domain.Credit
		if err := tx.Where("credit_id = ?", in.CreditID).First(&credit).Error; err != nil {
			return err
		}
		if credit.VerificationStatus != domain.VerificationVerified {
			return fmt.Errorf("%w: only verified credits can be listed", domain.ErrInvalidState)
		}

		id, err := domain.NextID(tx, domain.CounterListingID)
		if err != nil {
			return err
		}
		listing = &domain.Listing{
			ListingID:   id,
			CreditID:    in.CreditID,
			Seller:      in.Seller,
			PricePerTon: in.PricePerTon,
			AmountTons:  in.AmountTons,
			Status:      domain.ListingActive,
			CreatedAt:   s.now().Now(),
		}
		if err := tx.Create(listing).Error; err != nil {
			return err
		}
		ev, err = s.Recorder.Append(tx, "listing_created", map[string]interface{}{
			"listing_id": id, "credit_id": in.CreditID, "seller": in.Seller,
			"price_per_ton": in.PricePerTon, "amount_tons": in.AmountTons,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Recorder.Broadcast(ctx, ev)
	return listing, nil
}

// Quote is the settlement breakdown for a listing at the current fee.
type Quote struct {
	TotalPrice   int64 `json:"total_price"`
	Fee          int64 `json:"fee"`
	SellerAmount int64 `json:"seller_amount"`
}

func quote(l *domain.Listing, feeBps int64) Quote {
	total := l.PricePerTon * l.AmountTons
	fee := total * feeBps / 10000
	return Quote{TotalPrice: total, Fee: fee, SellerAmount: total - fee}
}

// BuyCredit settles an active listing: buyer pays seller and fee, credit
// custody moves to the buyer, and the listing flips Sold — all in one
// transaction. Any failing leg aborts the whole purchase.
func (s *Service) BuyCredit(ctx context.Context, buyer, proof string, listingID uint64) (*Quote, error) {
	if err := s.Auth.Prove(ctx, buyer, proof); err != nil {
		return nil, err
	}

	var q Quote
	var evs []*domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := s.config(tx)
		if err != nil {
			return err
		}
		var listing domain.Listing
		if err := tx.Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: listing %d", domain.ErrNotFound, listingID)
			}
			return err
		}
		if listing.Status != domain.ListingActive {
			return fmt.Errorf("%w: listing %d is not active", domain.ErrInvalidState, listingID)
		}

		q = quote(&listing, cfg.FeeBps)

		if err := s.Tokens.TransferTx(tx, token.TxSale, buyer, listing.Seller, q.SellerAmount); err != nil {
			return err
		}
		if q.Fee > 0 {
			if err := s.Tokens.TransferTx(tx, token.TxFee, buyer, cfg.Admin, q.Fee); err != nil {
				return err
			}
		}
		if err := s.Registry.TransferTx(tx, "sale", listing.Seller, buyer, listing.CreditID); err != nil {
			return err
		}

		if err := tx.Model(&domain.Listing{}).Where("listing_id = ?", listingID).
			Update("status", domain.ListingSold).Error; err != nil {
			return err
		}
		ev, err := s.Recorder.Append(tx, "credit_purchased", map[string]interface{}{
			"listing_id": listingID, "buyer": buyer, "seller": listing.Seller,
			"total_price": q.TotalPrice,
		})
		if err != nil {
			return err
		}
		evs = append(evs, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Recorder.Broadcast(ctx, evs...)
	log.Info().Uint64("listing_id", listingID).Str("buyer", buyer).Int64("total", q.TotalPrice).
		Msg("credit purchased")
	return &q, nil
}

// CancelListing cancels an active listing. Seller only; terminal.
func (s *Service) CancelListing(ctx context.Context, seller, proof string, listingID uint64) error {
	if err := s.Auth.Prove(ctx, seller, proof); err != nil {
		return err
	}

	var ev *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing domain.Listing
		if err := tx.Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: listing %d", domain.ErrNotFound, listingID)
			}
			return err
		}
		if listing.Seller != seller {
			return fmt.Errorf("%w: %s is not the seller", domain.ErrNotAuthorized, seller)
		}
		if listing.Status != domain.ListingActive {
			return fmt.Errorf("%w: listing %d is not active", domain.ErrInvalidState, listingID)
		}
		if err := tx.Model(&domain.Listing{}).Where("listing_id = ?", listingID).
			Update("status", domain.ListingCancelled).Error; err != nil {
			return err
		}
		var err error
		ev, err = s.Recorder.Append(tx, "listing_cancelled", map[string]interface{}{
			"listing_id": listingID, "seller": seller,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.Recorder.Broadcast(ctx, ev)
	return nil
}

// UpdatePrice changes the per-ton price of an active listing. Seller only.
func (s *Service) UpdatePrice(ctx context.Context, seller, proof string, listingID uint64, newPrice int64) error {
	if err := s.Auth.Prove(ctx, seller, proof); err != nil {
		return err
	}
	if newPrice <= 0 {
		return fmt.Errorf("%w: price must be positive", domain.ErrInvalidArgument)
	}

	var ev *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing domain.Listing
		if err := tx.Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: listing %d", domain.ErrNotFound, listingID)
			}
			return err
		}
		if listing.Seller != seller {
			return fmt.Errorf("%w: %s is not the seller", domain.ErrNotAuthorized, seller)
		}
		if listing.Status != domain.ListingActive {
			return fmt.Errorf("%w: listing %d is not active", domain.ErrInvalidState, listingID)
		}
		if newPrice > math.MaxInt64/listing.AmountTons {
			return fmt.Errorf("%w: listing value overflows", domain.ErrInvalidArgument)
		}
		if err := tx.Model(&domain.Listing{}).Where("listing_id = ?", listingID).
			Update("price_per_ton", newPrice).Error; err != nil {
			return err
		}
		var err error
		ev, err = s.Recorder.Append(tx, "price_updated", map[string]interface{}{
			"listing_id": listingID, "new_price": newPrice,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.Recorder.Broadcast(ctx, ev)
	return nil
}

// UpdateMarketplaceFee changes the fee. Admin only, capped at MaxFeeBps.
func (s *Service) UpdateMarketplaceFee(ctx context.Context, admin, proof string, newFeeBps int64) error {
	if err := s.Auth.Prove(ctx, admin, proof); err != nil {
		return err
	}
	if newFeeBps < 0 || newFeeBps > MaxFeeBps {
		return fmt.Errorf("%w: fee must be between 0 and %d bps", domain.ErrInvalidArgument, MaxFeeBps)
	}

	var ev *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := s.config(tx)
		if err != nil {
			return err
		}
		if cfg.Admin != admin {
			return fmt.Errorf("%w: %s is not the marketplace admin", domain.ErrNotAuthorized, admin)
		}
		if err := tx.Model(&domain.MarketConfig{}).Where("id = ?", cfg.ID).
			Update("fee_bps", newFeeBps).Error; err != nil {
			return err
		}
		ev, err = s.Recorder.Append(tx, "fee_updated", map[string]interface{}{"fee_bps": newFeeBps})
		return err
	})
	if err != nil {
		return err
	}
	s.Recorder.Broadcast(ctx, ev)
	return nil
}

// GetListing returns one listing.
func (s *Service) GetListing(ctx context.Context, listingID uint64) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: listing %d", domain.ErrNotFound, listingID)
		}
		return nil, err
	}
	return &listing, nil
}

// GetActiveListings returns every active listing, oldest first.
func (s *Service) GetActiveListings(ctx context.Context) ([]domain.Listing, error) {
	var listings []domain.Listing
	if err := s.DB.WithContext(ctx).Where("status = ?", domain.ListingActive).
		Order("listing_id ASC").Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// GetMarketplaceFee returns the current fee in basis points.
func (s *Service) GetMarketplaceFee(ctx context.Context) (int64, error) {
	cfg, err := s.config(s.DB.WithContext(ctx))
	if err != nil {
		return 0, err
	}
	return cfg.FeeBps, nil
}
