package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`

	EngineBaseURL       string `env:"ENGINE_BASE_URL" envDefault:"https://api.voice-engine.example.com"`
	EngineAPIKey        string `env:"ENGINE_API_KEY"`
	EngineWebhookSecret string `env:"ENGINE_WEBHOOK_SECRET"`

	TelephonyBaseURL    string `env:"TELEPHONY_BASE_URL" envDefault:"https://api.telephony.example.com"`
	TelephonyAccountSID string `env:"TELEPHONY_ACCOUNT_SID"`
	TelephonyAuthToken  string `env:"TELEPHONY_AUTH_TOKEN"`

	// WebhookVerifyDisabled skips completion-webhook signature checks. Local testing only.
	WebhookVerifyDisabled bool `env:"WEBHOOK_VERIFY_DISABLED" envDefault:"false"`

	// Outbound customer notifications. Delivery is skipped when the URL is empty.
	CustomerWebhookURL    string `env:"CUSTOMER_WEBHOOK_URL"`
	CustomerWebhookSecret string `env:"CUSTOMER_WEBHOOK_SECRET"`

	DefaultPricePerMinute float64 `env:"DEFAULT_PRICE_PER_MINUTE" envDefault:"1"`
	SilenceTimeoutSeconds int     `env:"SILENCE_TIMEOUT_SECONDS" envDefault:"30"`
	StaleCallMaxAgeHours  int     `env:"STALE_CALL_MAX_AGE_HOURS" envDefault:"24"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) SilenceTimeout() time.Duration {
	return time.Duration(c.SilenceTimeoutSeconds) * time.Second
}

func (c *Config) StaleCallMaxAge() time.Duration {
	return time.Duration(c.StaleCallMaxAgeHours) * time.Hour
}

func (c *Config) Validate(isProduction bool) error {
	if c.SilenceTimeoutSeconds <= 0 {
		return fmt.Errorf("SILENCE_TIMEOUT_SECONDS must be positive")
	}
	if c.DefaultPricePerMinute < 0 {
		return fmt.Errorf("DEFAULT_PRICE_PER_MINUTE must not be negative")
	}

	if isProduction {
		if c.WebhookVerifyDisabled {
			return fmt.Errorf("WEBHOOK_VERIFY_DISABLED must not be set in production")
		}
		if c.EngineWebhookSecret == "" {
			log.Warn().Msg("ENGINE_WEBHOOK_SECRET is empty in production: completion webhook signature verification disabled")
		}
		if c.EngineAPIKey == "" {
			return fmt.Errorf("ENGINE_API_KEY is required in production")
		}
		if c.TelephonyAuthToken == "" {
			return fmt.Errorf("TELEPHONY_AUTH_TOKEN is required in production")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
