// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Config is the process configuration, read from the environment.
type Config struct {
	ListenAddr    string
	DatabaseURL   string // empty disables Postgres; an in-memory ledger is used
	RedisAddr     string // empty disables the action historian
	RedisPassword string
	JWTSecret     string

	// AllowedOrigins are extra websocket origin patterns besides same-host.
	AllowedOrigins []string

	// DevCredit exposes POST /dev/credit for funding test accounts.
	DevCredit bool

	BotDelay     time.Duration
	RakeRate     decimal.Decimal
	DefaultStake decimal.Decimal
	HandSize     uint8
	AutoSettle   bool
	LogLevel     logrus.Level
}

// Load reads .env (if present) and then the environment.
// Missing variables fall back to development defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	c := &Config{
		ListenAddr:    getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     getenv("JWT_SECRET", "dev-secret"),
	}

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, o)
			}
		}
	}

	ms, err := strconv.Atoi(getenv("BOT_DELAY_MS", "600"))
	if err != nil || ms < 0 {
		return nil, fmt.Errorf("invalid BOT_DELAY_MS %q", os.Getenv("BOT_DELAY_MS"))
	}
	c.BotDelay = time.Duration(ms) * time.Millisecond

	if c.RakeRate, err = decimal.NewFromString(getenv("RAKE_RATE", "0.05")); err != nil {
		return nil, fmt.Errorf("invalid RAKE_RATE: %w", err)
	}
	if c.RakeRate.IsNegative() || c.RakeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("RAKE_RATE %s outside [0, 1)", c.RakeRate)
	}
	if c.DefaultStake, err = decimal.NewFromString(getenv("DEFAULT_STAKE", "0.01")); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_STAKE: %w", err)
	}

	hs, err := strconv.ParseUint(getenv("HAND_SIZE", "7"), 10, 8)
	if err != nil || hs == 0 || hs > 20 {
		return nil, fmt.Errorf("invalid HAND_SIZE %q", os.Getenv("HAND_SIZE"))
	}
	c.HandSize = uint8(hs)

	if c.AutoSettle, err = strconv.ParseBool(getenv("AUTO_SETTLE", "true")); err != nil {
		return nil, fmt.Errorf("invalid AUTO_SETTLE: %w", err)
	}

	if c.DevCredit, err = strconv.ParseBool(getenv("DEV_CREDIT", "false")); err != nil {
		return nil, fmt.Errorf("invalid DEV_CREDIT: %w", err)
	}

	if c.LogLevel, err = logrus.ParseLevel(getenv("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return c, nil
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
