package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env          string
	Port         string
	DatabaseURL  string
	SQLitePath   string // fallback store when DATABASE_URL is unset (dev)
	RedisURL     string // optional; event broadcast disabled when unset
	EventChannel string
	PaymentAsset string // display code of the settlement asset
	CORSSuffix   string // allowed Origin suffix (e.g. .verdant.earth)
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL")
	if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}

	sqlitePath := viper.GetString("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "verdant.db"
	}

	asset := viper.GetString("PAYMENT_ASSET")
	if asset == "" {
		asset = "VUSD"
	}

	channel := viper.GetString("EVENT_CHANNEL")
	if channel == "" {
		channel = "ledger.events"
	}

	return &Config{
		Env:          env,
		Port:         port,
		DatabaseURL:  dbURL,
		SQLitePath:   sqlitePath,
		RedisURL:     viper.GetString("REDIS_URL"),
		EventChannel: channel,
		PaymentAsset: asset,
		CORSSuffix:   viper.GetString("CORS_SUFFIX"),
	}, nil
}
