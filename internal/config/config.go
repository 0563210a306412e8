// Package config loads finbot settings from the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendBigQuery = "bigquery"
)

// Config holds all runtime settings.
type Config struct {
	// Core
	Port      string
	LogLevel  string
	LogFormat string

	// Locale
	Language string
	Currency string

	// Model
	GeminiAPIKey      string
	GeminiModel       string
	GeminiTemperature float64

	// Storage
	StoreBackend    string
	SQLitePath      string
	BigQueryProject string
	BigQueryDataset string
	ReceiptsBucket  string

	// Notion mirror
	NotionToken          string
	NotionTransactionsDB string

	// HTTP limits
	SessionTTL     time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	MaxImageBytes  int64

	// CLI
	DefaultUserID string
}

// NotionEnabled reports whether the Notion mirror is configured.
func (c *Config) NotionEnabled() bool {
	return c.NotionToken != "" && c.NotionTransactionsDB != ""
}

// Load reads .env from the current or parent directory, if present, and
// then the process environment. Malformed values are reported together.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Missing files are expected in production.
		_ = godotenv.Load("../.env")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	var l loader

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		Language: getEnv("FINBOT_LANGUAGE", "pt-BR"),
		Currency: getEnv("FINBOT_CURRENCY", "BRL"),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTemperature: l.getEnvAsFloat("GEMINI_TEMPERATURE", 0.4),

		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
		SQLitePath:      getEnv("SQLITE_PATH", "./finbot.db"),
		BigQueryProject: getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", "finance"),
		ReceiptsBucket:  getEnv("RECEIPTS_BUCKET", ""),

		NotionToken:          getEnv("NOTION_TOKEN", ""),
		NotionTransactionsDB: getEnv("NOTION_TRANSACTIONS_DB", ""),

		SessionTTL:     l.getEnvAsDuration("SESSION_TTL", 2*time.Hour),
		RateLimitRPS:   l.getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: l.getEnvAsInt("RATE_LIMIT_BURST", 30),
		MaxImageBytes:  int64(l.getEnvAsInt("MAX_IMAGE_BYTES", 10<<20)),

		DefaultUserID: getEnv("FINBOT_USER_ID", "local"),
	}

	if l.err != nil {
		return nil, fmt.Errorf("FromEnv: %w", l.err)
	}
	return cfg, nil
}

// Validate reports settings required by the chosen backends that are missing.
// The model key is checked only when requireModel is set.
func (c *Config) Validate(requireModel bool) error {
	var errs []error

	switch c.StoreBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite backend"))
		}
	case BackendBigQuery:
		if c.BigQueryProject == "" {
			errs = append(errs, errors.New("BIGQUERY_PROJECT is required for the bigquery backend"))
		}
		if c.BigQueryDataset == "" {
			errs = append(errs, errors.New("BIGQUERY_DATASET is required for the bigquery backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	if requireModel && c.GeminiAPIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required"))
	}
	if (c.NotionToken == "") != (c.NotionTransactionsDB == "") {
		errs = append(errs, errors.New("NOTION_TOKEN and NOTION_TRANSACTIONS_DB must be set together"))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if c.MaxImageBytes <= 0 {
		errs = append(errs, errors.New("MAX_IMAGE_BYTES must be positive"))
	}

	return errors.Join(errs...)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

// loader collects parse errors from the typed helpers.
type loader struct {
	err error
}

func (l *loader) fail(key, value, kind string) {
	l.err = errors.Join(l.err, fmt.Errorf("invalid %s value for %s: %q", kind, key, value))
}

func (l *loader) getEnvAsInt(key string, fallback int) int {
	s := getEnv(key, "")
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		l.fail(key, s, "integer")
		return fallback
	}
	return v
}

func (l *loader) getEnvAsFloat(key string, fallback float64) float64 {
	s := getEnv(key, "")
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		l.fail(key, s, "number")
		return fallback
	}
	return v
}

func (l *loader) getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	s := getEnv(key, "")
	if s == "" {
		return fallback
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		l.fail(key, s, "duration")
		return fallback
	}
	return v
}
