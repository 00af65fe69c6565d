// Package config loads recipehub settings from .env and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"recipehub/models"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	Port             string        `mapstructure:"PORT"`
	MongoURI         string        `mapstructure:"MONGODB_URI"`
	MongoDatabase    string        `mapstructure:"MONGODB_DATABASE"`
	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	TokenTTL         time.Duration `mapstructure:"TOKEN_TTL"`
	DefaultPageLimit int           `mapstructure:"DEFAULT_PAGE_LIMIT"`
	PublicBaseURL    string        `mapstructure:"PUBLIC_BASE_URL"`
	UploadDir        string        `mapstructure:"UPLOAD_DIR"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	LogFormat        string        `mapstructure:"LOG_FORMAT"`
	PaymentsEnabled  bool          `mapstructure:"PAYMENTS_ENABLED"`
	StripeSecretKey  string        `mapstructure:"STRIPE_SECRET_KEY"`
	StripeSuccessURL string        `mapstructure:"STRIPE_SUCCESS_URL"`
	StripeCancelURL  string        `mapstructure:"STRIPE_CANCEL_URL"`
	AllowedOrigins   string        `mapstructure:"ALLOWED_ORIGINS"`
	RateLimitRPS     float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int           `mapstructure:"RATE_LIMIT_BURST"`
	Env              string        `mapstructure:"APP_ENV"`
}

var defaults = map[string]any{
	"PORT":               "4000",
	"MONGODB_URI":        "mongodb://localhost:27017",
	"MONGODB_DATABASE":   "recipehub",
	"REDIS_ADDR":         "localhost:6379",
	"JWT_SECRET":         defaultJWTSecret,
	"TOKEN_TTL":          "72h",
	"DEFAULT_PAGE_LIMIT": 10,
	"PUBLIC_BASE_URL":    "http://localhost:4000",
	"UPLOAD_DIR":         "static/uploads",
	"LOG_LEVEL":          "info",
	"LOG_FORMAT":         "console",
	"PAYMENTS_ENABLED":   false,
	"STRIPE_SECRET_KEY":  "",
	"STRIPE_SUCCESS_URL": "",
	"STRIPE_CANCEL_URL":  "",
	"ALLOWED_ORIGINS":    "http://localhost:5173,http://localhost:3000",
	"RATE_LIMIT_RPS":     5.0,
	"RATE_LIMIT_BURST":   10,
	"APP_ENV":            "development",
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file, using environment only")
	}
	return FromViper(viper.New())
}

// FromViper applies defaults to v and decodes it.
func FromViper(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Origins splits AllowedOrigins on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.MongoURI == "" {
		return errors.New("MONGODB_URI is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DefaultPageLimit < 1 {
		return errors.New("DEFAULT_PAGE_LIMIT must be positive")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Warn().Msg("JWT_SECRET is shorter than 32 characters")
	}

	if c.PaymentsEnabled {
		if c.StripeSecretKey == "" {
			return models.NewUpstreamConfigurationError("STRIPE_SECRET_KEY is required when payments are enabled")
		}
		if c.StripeSuccessURL == "" || c.StripeCancelURL == "" {
			return models.NewUpstreamConfigurationError("STRIPE_SUCCESS_URL and STRIPE_CANCEL_URL are required when payments are enabled")
		}
	}
	return nil
}
