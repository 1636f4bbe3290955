// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DevJWTSecret is used when JWT_SECRET is unset. Never use it in production.
const DevJWTSecret = "papertrade-dev-secret"

type Config struct {
	Port            string
	DatabaseURL     string
	RedisURL        string
	CacheTTL        time.Duration
	StartingBalance decimal.Decimal
	JWTIssuer       string
	JWTSecret       string
	JWTTTL          time.Duration
	HistoryLimit    int
	CORSOrigin      string
}

// UsingDevSecret reports whether the fallback JWT secret is in effect.
func (c Config) UsingDevSecret() bool {
	return c.JWTSecret == DevJWTSecret
}

// Load reads configuration from the process environment.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads configuration through getenv.
func LoadFrom(getenv func(string) string) (Config, error) {
	c := Config{
		Port:        orDefault(getenv("PORT"), "8080"),
		DatabaseURL: getenv("DATABASE_URL"),
		RedisURL:    getenv("REDIS_URL"),
		JWTIssuer:   orDefault(getenv("JWT_ISSUER"), "papertrade"),
		JWTSecret:   orDefault(getenv("JWT_SECRET"), DevJWTSecret),
		CORSOrigin:  orDefault(getenv("CORS_ORIGIN"), "*"),
	}

	var err error
	if c.CacheTTL, err = duration(getenv, "CACHE_TTL", 30*time.Second); err != nil {
		return c, err
	}
	if c.JWTTTL, err = duration(getenv, "JWT_TTL", 24*time.Hour); err != nil {
		return c, err
	}

	balance := orDefault(getenv("STARTING_BALANCE"), "10000")
	c.StartingBalance, err = decimal.NewFromString(balance)
	if err != nil || c.StartingBalance.IsNegative() {
		return c, fmt.Errorf("invalid STARTING_BALANCE: %q", balance)
	}

	limit := orDefault(getenv("HISTORY_LIMIT"), "20")
	c.HistoryLimit, err = strconv.Atoi(limit)
	if err != nil || c.HistoryLimit <= 0 {
		return c, fmt.Errorf("invalid HISTORY_LIMIT: %q", limit)
	}

	if c.RedisURL != "" && c.DatabaseURL == "" {
		return c, fmt.Errorf("REDIS_URL requires DATABASE_URL")
	}
	return c, nil
}

func duration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return d, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
