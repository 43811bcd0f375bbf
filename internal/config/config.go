// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config is the full process configuration.
type Config struct {
	Env               string        `validate:"oneof=development production"`
	DBPath            string        `validate:"required_if=Store sqlite"`
	Store             string        `validate:"oneof=sqlite redis memory"`
	RedisURL          string        `validate:"required_if=Store redis"`
	HTTPAddr          string        `validate:"required"`
	LogLevel          string        `validate:"oneof=debug info warn error"`
	LogFile           string
	MaxCandidates     int           `validate:"gte=0"`
	CandidateCacheTTL time.Duration `validate:"gte=0"`
	NATSURL           string        `validate:"omitempty,url"`
}

// Production reports whether the process runs in production mode.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Defaults returns the configuration used when no variable is set.
func Defaults() Config {
	return Config{
		Env:               "development",
		DBPath:            "toplist.db",
		Store:             StoreSQLite,
		RedisURL:          "redis://localhost:6379/0",
		HTTPAddr:          ":8080",
		LogLevel:          "info",
		LogFile:           "logs/toplist.log",
		MaxCandidates:     50,
		CandidateCacheTTL: 5 * time.Minute,
	}
}

// Load reads an optional .env file, then the environment, and validates
// the result. Variables already set in the environment win over .env.
func Load(envFiles ...string) (*Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load(envFiles...)
	return FromEnv()
}

// FromEnv builds the configuration from the environment only.
func FromEnv() (*Config, error) {
	d := Defaults()
	cfg := &Config{
		Env:      getEnv("TOPLIST_ENV", d.Env),
		DBPath:   getEnv("TOPLIST_DB_PATH", d.DBPath),
		Store:    getEnv("TOPLIST_STORE", d.Store),
		RedisURL: getEnv("TOPLIST_REDIS_URL", d.RedisURL),
		HTTPAddr: getEnv("TOPLIST_HTTP_ADDR", d.HTTPAddr),
		LogLevel: getEnv("TOPLIST_LOG_LEVEL", d.LogLevel),
		LogFile:  getEnv("TOPLIST_LOG_FILE", d.LogFile),
		NATSURL:  getEnv("TOPLIST_NATS_URL", ""),
	}

	var err error
	if cfg.MaxCandidates, err = getEnvAsInt("TOPLIST_MAX_CANDIDATES", d.MaxCandidates); err != nil {
		return nil, err
	}
	if cfg.CandidateCacheTTL, err = getEnvAsDuration("TOPLIST_CANDIDATE_CACHE_TTL", d.CandidateCacheTTL); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
