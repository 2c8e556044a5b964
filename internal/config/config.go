package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	Monime      MonimeConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	LogLevel    string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// MonimeConfig holds the mobile-money provider credentials.
// All fields are required before a payment can be initiated, but the
// service itself boots without them (orders still work).
type MonimeConfig struct {
	BaseURL       string
	APIKey        string
	SpaceID       string
	WebhookSecret string
}

// MissingCredentials lists the credential fields that are not set
func (c MonimeConfig) MissingCredentials() []string {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, "MONIME_API_KEY")
	}
	if c.SpaceID == "" {
		missing = append(missing, "MONIME_SPACE_ID")
	}
	if c.WebhookSecret == "" {
		missing = append(missing, "MONIME_WEBHOOK_SECRET")
	}
	return missing
}

type AuthConfig struct {
	JWTSecret string
}

type RateLimitConfig struct {
	Limit  int64
	Period time.Duration
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MONIME_BASE_URL", "https://api.monime.io")
	viper.SetDefault("RATE_LIMIT_LIMIT", "30")
	viper.SetDefault("RATE_LIMIT_PERIOD", "1m")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:           getEnvOrViper("DB_HOST", "localhost"),
			Port:           getEnvOrViper("DB_PORT", "5432"),
			User:           getEnvOrViper("DB_USER", "postgres"),
			Password:       getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:         getEnvOrViper("DB_NAME", "farmtrust"),
			SSLMode:        getEnvOrViper("DB_SSLMODE", "disable"),
			MigrationsPath: getEnvOrViper("MIGRATIONS_PATH", "migrations"),
		},
		Monime: MonimeConfig{
			BaseURL:       getEnvOrViper("MONIME_BASE_URL", "https://api.monime.io"),
			APIKey:        getEnvOrViper("MONIME_API_KEY", ""),
			SpaceID:       getEnvOrViper("MONIME_SPACE_ID", ""),
			WebhookSecret: getEnvOrViper("MONIME_WEBHOOK_SECRET", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnvOrViper("JWT_SECRET", ""),
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	rateLimit, err := time.ParseDuration(getEnvOrViper("RATE_LIMIT_PERIOD", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PERIOD: %w", err)
	}
	cfg.RateLimit = RateLimitConfig{
		Limit:  viper.GetInt64("RATE_LIMIT_LIMIT"),
		Period: rateLimit,
	}
	if cfg.RateLimit.Limit <= 0 {
		cfg.RateLimit.Limit = 30
	}

	// Validate required fields
	if cfg.Auth.JWTSecret == "" {
		if cfg.Environment == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.Auth.JWTSecret = "dev-secret-change-in-production"
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}
