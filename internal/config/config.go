// Package config reads service configuration from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Host        string
	Port        string
	LogLevel    slog.Level
	DatabaseURL string

	OIDCIssuer   string
	OIDCClientID string

	ProductConfig     string
	ProductDenylist   string
	ReconcilePageSize int

	KafkaBrokers       []string
	KafkaConsumerGroup string
	OfferingTopic      string
	ContractTopic      string

	ProductAPIURL      string
	InventoryAPIURL    string
	UpstreamMaxRetries int

	OfferingSyncSchedule string
	TallySchedule        string
}

func defaults(v *viper.Viper) {
	v.SetDefault("HOST", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PRODUCT_CONFIG", "config/products.yaml")
	v.SetDefault("PRODUCT_DENYLIST", "")
	v.SetDefault("RECONCILE_PAGE_SIZE", 500)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_CONSUMER_GROUP", "tally")
	v.SetDefault("OFFERING_TOPIC", "offerings")
	v.SetDefault("CONTRACT_TOPIC", "contracts")
	v.SetDefault("PRODUCT_API_URL", "")
	v.SetDefault("INVENTORY_API_URL", "")
	v.SetDefault("UPSTREAM_MAX_RETRIES", 4)
	v.SetDefault("OFFERING_SYNC_SCHEDULE", "0 3 * * *") // Sync every offering daily at 3:00am.
	v.SetDefault("TALLY_SCHEDULE", "5 * * * *")         // Tally every hour, five minutes after the hour.
	v.SetDefault("OIDC_ISSUER", "")
	v.SetDefault("OIDC_CLIENT_ID", "")
}

// New loads .env when present, then reads every setting from the environment. Environment variables win over .env entries.
func New() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	c := Config{
		Host:                 v.GetString("HOST"),
		Port:                 v.GetString("PORT"),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		OIDCIssuer:           v.GetString("OIDC_ISSUER"),
		OIDCClientID:         v.GetString("OIDC_CLIENT_ID"),
		ProductConfig:        v.GetString("PRODUCT_CONFIG"),
		ProductDenylist:      v.GetString("PRODUCT_DENYLIST"),
		ReconcilePageSize:    v.GetInt("RECONCILE_PAGE_SIZE"),
		KafkaConsumerGroup:   v.GetString("KAFKA_CONSUMER_GROUP"),
		OfferingTopic:        v.GetString("OFFERING_TOPIC"),
		ContractTopic:        v.GetString("CONTRACT_TOPIC"),
		ProductAPIURL:        v.GetString("PRODUCT_API_URL"),
		InventoryAPIURL:      v.GetString("INVENTORY_API_URL"),
		UpstreamMaxRetries:   v.GetInt("UPSTREAM_MAX_RETRIES"),
		OfferingSyncSchedule: v.GetString("OFFERING_SYNC_SCHEDULE"),
		TallySchedule:        v.GetString("TALLY_SCHEDULE"),
	}
	for _, b := range strings.Split(v.GetString("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			c.KafkaBrokers = append(c.KafkaBrokers, b)
		}
	}

	if c.DatabaseURL == "" {
		return Config{}, errors.New("reading DATABASE_URL")
	}
	if err := c.LogLevel.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		return Config{}, fmt.Errorf("reading LOG_LEVEL: %w", err)
	}
	if c.ReconcilePageSize <= 0 {
		return Config{}, fmt.Errorf("reading RECONCILE_PAGE_SIZE: must be positive, got %d", c.ReconcilePageSize)
	}
	if c.UpstreamMaxRetries < 0 {
		return Config{}, fmt.Errorf("reading UPSTREAM_MAX_RETRIES: must not be negative, got %d", c.UpstreamMaxRetries)
	}
	return c, nil
}

// KafkaEnabled reports whether brokers are configured. Without them the service runs without consuming events.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// OIDCEnabled reports whether admin routes can be protected by token verification.
func (c Config) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}
