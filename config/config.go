// Package config loads service settings from the environment, after an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const (
	PayoutPayThenCommit = "pay_then_commit"
	PayoutCommitThenPay = "commit_then_pay"

	PaymentModeSimulated = "simulated"
	PaymentModeHTTP      = "http"
)

type Config struct {
	ListenAddr     string `env:"LISTEN_ADDR,default=:5200"`
	ServiceToken   string `env:"SERVICE_TOKEN"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`

	StoreBackend         string `env:"STORE_BACKEND,default=sqlite"`
	SQLitePath           string `env:"SQLITE_PATH,default=data/bounties.db"`
	DatabaseURL          string `env:"DATABASE_URL"`
	RedisURL             string `env:"REDIS_URL"`
	RedisPrefix          string `env:"REDIS_PREFIX,default=bounty-board"`
	CloudflareAccountID  string `env:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID        string `env:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret    string `env:"R2_ACCESS_KEY_SECRET"`
	R2Bucket             string `env:"R2_BUCKET_NAME"`
	R2Prefix             string `env:"R2_PREFIX,default=collections/"`
	R2Endpoint           string `env:"R2_ENDPOINT"`
	StoreConflictRetries int    `env:"STORE_CONFLICT_RETRIES,default=3"`

	GracePeriodMs       int64 `env:"GRACE_PERIOD_MS,default=604800000"`
	SchedulerIntervalMs int64 `env:"SCHEDULER_INTERVAL_MS,default=3600000"`

	RequireExistingBounty  bool `env:"REQUIRE_EXISTING_BOUNTY,default=true"`
	AllowClosedSubmissions bool `env:"ALLOW_CLOSED_SUBMISSIONS,default=true"`

	PayoutPolicy      string  `env:"PAYOUT_POLICY,default=pay_then_commit"`
	PaymentMode       string  `env:"PAYMENT_MODE,default=simulated"`
	PaymentURL        string  `env:"PAYMENT_URL"`
	PaymentToken      string  `env:"PAYMENT_TOKEN"`
	PaymentTimeoutMs  int64   `env:"PAYMENT_TIMEOUT_MS,default=15000"`
	PaymentRatePerSec float64 `env:"PAYMENT_RATE_PER_SEC,default=5"`
	PayoutRetryMs     int64   `env:"PAYOUT_RETRY_INTERVAL_MS,default=60000"`
}

// Load reads .env (if present) and decodes the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that only make sense together.
func (c *Config) Validate() error {
	var problems []string

	if c.GracePeriodMs < 0 {
		problems = append(problems, "GRACE_PERIOD_MS must be >= 0")
	}
	if c.SchedulerIntervalMs <= 0 {
		problems = append(problems, "SCHEDULER_INTERVAL_MS must be > 0")
	}
	if c.PaymentTimeoutMs <= 0 {
		problems = append(problems, "PAYMENT_TIMEOUT_MS must be > 0")
	}
	if c.PayoutRetryMs <= 0 {
		problems = append(problems, "PAYOUT_RETRY_INTERVAL_MS must be > 0")
	}
	if c.StoreConflictRetries < 0 {
		problems = append(problems, "STORE_CONFLICT_RETRIES must be >= 0")
	}

	switch c.PayoutPolicy {
	case PayoutPayThenCommit, PayoutCommitThenPay:
	default:
		problems = append(problems, fmt.Sprintf("PAYOUT_POLICY %q must be %s or %s", c.PayoutPolicy, PayoutPayThenCommit, PayoutCommitThenPay))
	}

	switch c.PaymentMode {
	case PaymentModeSimulated:
	case PaymentModeHTTP:
		if c.PaymentURL == "" {
			problems = append(problems, "PAYMENT_URL is required when PAYMENT_MODE=http")
		}
	default:
		problems = append(problems, fmt.Sprintf("PAYMENT_MODE %q must be %s or %s", c.PaymentMode, PaymentModeSimulated, PaymentModeHTTP))
	}

	switch c.StoreBackend {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	case "redis":
		if c.RedisURL == "" {
			problems = append(problems, "REDIS_URL is required when STORE_BACKEND=redis")
		}
	case "r2":
		if c.R2Bucket == "" || (c.CloudflareAccountID == "" && c.R2Endpoint == "") {
			problems = append(problems, "R2_BUCKET_NAME and CLOUDFLARE_ACCOUNT_ID (or R2_ENDPOINT) are required when STORE_BACKEND=r2")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodMs) * time.Millisecond
}

func (c *Config) SchedulerInterval() time.Duration {
	return time.Duration(c.SchedulerIntervalMs) * time.Millisecond
}

func (c *Config) PaymentTimeout() time.Duration {
	return time.Duration(c.PaymentTimeoutMs) * time.Millisecond
}

func (c *Config) PayoutRetryInterval() time.Duration {
	return time.Duration(c.PayoutRetryMs) * time.Millisecond
}

// Origins splits ALLOWED_ORIGINS and trims each entry.
func (c *Config) Origins() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	for i, origin := range parts {
		parts[i] = strings.TrimSpace(origin)
	}
	return strings.Join(parts, ",")
}
