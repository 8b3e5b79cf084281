package database

import (
	"verdant-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Postgres pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") when using connection poolers
// (e.g. PgBouncer, Supabase, Render).
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// OpenSQLite opens an embedded sqlite DB (pure Go driver); used for local
// development and tests.
func OpenSQLite(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{})
}

// AutoMigrate runs migrations for every ledger model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Actor{},
		&domain.RegistryConfig{},
		&domain.WorkflowConfig{},
		&domain.MarketConfig{},
		&domain.TokenConfig{},
		&domain.Counter{},
		&domain.Credit{},
		&domain.CreditOwnership{},
		&domain.CreditTransfer{},
		&domain.VerificationRequest{},
		&domain.Verifier{},
		&domain.Listing{},
		&domain.TokenAccount{},
		&domain.TokenTransfer{},
		&domain.RetirementCertificate{},
		&domain.LedgerEvent{},
	)
}
