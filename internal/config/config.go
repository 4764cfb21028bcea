// Package config maps environment variables into the typed runtime
// configuration the binaries share.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration for the examgate API server.
type Config struct {
	Addr        string `env:"EXAMGATE_ADDR" envDefault:":8080"`
	Environment string `env:"EXAMGATE_ENV"  envDefault:"development"`

	// PostgreSQL DSN for the grant store. Optional: without it the server
	// still starts for health/metrics, but guarded routes are disabled.
	PGDSN string `env:"EXAMGATE_PG_DSN"`

	// Redis URL for the session revocation deny-list. Optional.
	RedisURL string `env:"EXAMGATE_REDIS_URL"`

	// Shared HS256 secret for session tokens minted by the identity service.
	AuthSecret string `env:"EXAMGATE_AUTH_SECRET"`
	AuthIssuer string `env:"EXAMGATE_AUTH_ISSUER" envDefault:"examgate"`

	// LoginURL is the default redirect target when a page guard denies.
	LoginURL string `env:"EXAMGATE_LOGIN_URL" envDefault:"/login"`

	// Token-bucket rate limit applied per client IP.
	RateLimitBurst     int `env:"EXAMGATE_RATE_BURST"      envDefault:"50"`
	RateLimitPerSecond int `env:"EXAMGATE_RATE_PER_SECOND" envDefault:"25"`

	// MigrationsDir is the filesystem path to the SQL migrations.
	MigrationsDir string `env:"EXAMGATE_MIGRATIONS_DIR" envDefault:"./migrations"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}
