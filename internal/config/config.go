package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env  string
	Port string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string

	// PrizeMultiplier converts an entry fee into the winner payout.
	// 1.8 corresponds to winner-takes-all minus a 10% platform fee.
	PrizeMultiplier float64

	// WaitTimeout is how long a waiting ticket sits unmatched before the
	// lifecycle sweep expires and refunds it.
	WaitTimeout time.Duration

	// ReadyTimeout is the grace window for both players of a matched ticket
	// to acknowledge readiness before the ticket is voided.
	ReadyTimeout time.Duration

	// ActiveGrace is added on top of a battle's time limit before an
	// overdue active ticket is settled as a draw.
	ActiveGrace time.Duration

	SweepInterval time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:             getEnv("ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		RedisURL:        getEnv("REDIS_URL", "localhost:6379"),
		RedisPass:       getEnv("REDIS_PASSWORD", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		PrizeMultiplier: getEnvFloat("PRIZE_MULTIPLIER", 1.8),
		WaitTimeout:     getEnvDuration("WAIT_TIMEOUT_SEC", 120),
		ReadyTimeout:    getEnvDuration("READY_TIMEOUT_SEC", 30),
		ActiveGrace:     getEnvDuration("ACTIVE_GRACE_SEC", 60),
		SweepInterval:   getEnvDuration("SWEEP_INTERVAL_SEC", 10),
	}

	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %v", err)
	}
	cfg.RedisDB = db

	if cfg.Env == "production" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-do-not-use-in-production"
	}

	if cfg.PrizeMultiplier <= 0 || cfg.PrizeMultiplier > 2 {
		return nil, fmt.Errorf("PRIZE_MULTIPLIER must be in (0, 2], got %.2f", cfg.PrizeMultiplier)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallbackSec int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(fallbackSec) * time.Second
}
