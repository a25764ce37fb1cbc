// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// Risk scoring
	RiskServiceURL string
	HighRiskAmount decimal.Decimal // fallback threshold for the high-risk flag

	// Storage. DynamoDB wins over Postgres when both are set; neither means memory only.
	DynamoTable    string
	AWSRegion      string
	DynamoEndpoint string
	DatabaseURL    string
	AllowClear     bool

	// Identity
	OAuthClientID string // expected token audience; empty skips the audience check
	ProjectID     string
	OIDCIssuer    string
	OIDCJWKSURL   string

	// Events
	KafkaBrokers []string
	KafkaTopic   string

	// Tracing
	OTLPEndpoint string
}

const (
	DefaultPort           = "8080"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultRiskServiceURL = "http://localhost:8080/risk"
	DefaultHighRiskAmount = 10000
	DefaultOIDCIssuer     = "https://accounts.google.com"
	DefaultOIDCJWKSURL    = "https://www.googleapis.com/oauth2/v3/certs"
	DefaultKafkaTopic     = "transaction_created"
)

// Load reads configuration from environment variables.
// It loads a .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", DefaultPort),
		Env:            getEnv("ENV", DefaultEnv),
		LogLevel:       getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:      getEnv("LOG_FORMAT", DefaultLogFormat),
		RiskServiceURL: getEnv("RISK_SERVICE_URL", DefaultRiskServiceURL),
		HighRiskAmount: getEnvInt("HIGH_RISK_AMOUNT", DefaultHighRiskAmount),
		DynamoTable:    os.Getenv("DDB_TABLE"),
		AWSRegion:      os.Getenv("AWS_REGION"),
		DynamoEndpoint: os.Getenv("DDB_ENDPOINT"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AllowClear:     getEnvBool("ALLOW_CLEAR"),
		OAuthClientID:  os.Getenv("GOOGLE_OAUTH_CLIENT_ID"),
		ProjectID:      os.Getenv("GOOGLE_PROJECT_ID"),
		OIDCIssuer:     getEnv("OIDC_ISSUER", DefaultOIDCIssuer),
		OIDCJWKSURL:    getEnv("OIDC_JWKS_URL", DefaultOIDCJWKSURL),
		KafkaBrokers:   splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", DefaultKafkaTopic),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.RiskServiceURL == "" {
		return fmt.Errorf("RISK_SERVICE_URL must not be empty")
	}
	if c.OIDCJWKSURL == "" {
		return fmt.Errorf("OIDC_JWKS_URL must not be empty")
	}
	return nil
}

// Backend names the transaction store selected by this configuration.
func (c *Config) Backend() string {
	switch {
	case c.DynamoTable != "":
		return "dynamodb"
	case c.DatabaseURL != "":
		return "postgres"
	default:
		return "memory"
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses an integer threshold. Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int64) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return decimal.NewFromInt(i)
		}
	}
	return decimal.NewFromInt(defaultValue)
}

func getEnvBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
