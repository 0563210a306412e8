package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_BACKEND", "SESSION_TTL", "GEMINI_TEMPERATURE", "FINBOT_LANGUAGE"} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.StoreBackend != BackendSQLite {
		t.Errorf("StoreBackend = %q", cfg.StoreBackend)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.GeminiTemperature != 0.4 {
		t.Errorf("GeminiTemperature = %v", cfg.GeminiTemperature)
	}
	if cfg.Language != "pt-BR" {
		t.Errorf("Language = %q", cfg.Language)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_BACKEND", "BigQuery")
	t.Setenv("BIGQUERY_PROJECT", "proj")
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("MAX_IMAGE_BYTES", "1024")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	got := []interface{}{cfg.Port, cfg.StoreBackend, cfg.BigQueryProject, cfg.SessionTTL, cfg.RateLimitBurst, cfg.MaxImageBytes}
	want := []interface{}{"9000", BackendBigQuery, "proj", 15 * time.Minute, 5, int64(1024)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestFromEnvMalformed(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("RATE_LIMIT_BURST", "lots")

	_, err := FromEnv()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"SESSION_TTL", "RATE_LIMIT_BURST"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			StoreBackend:   BackendSQLite,
			SQLitePath:     "finbot.db",
			GeminiAPIKey:   "key",
			RateLimitRPS:   1,
			RateLimitBurst: 1,
			MaxImageBytes:  1,
		}
	}

	tests := []struct {
		name         string
		mutate       func(*Config)
		requireModel bool
		wantErr      string
	}{
		{name: "valid", mutate: func(*Config) {}, requireModel: true},
		{name: "unknown backend", mutate: func(c *Config) { c.StoreBackend = "mongo" }, wantErr: "STORE_BACKEND"},
		{name: "bigquery without project", mutate: func(c *Config) { c.StoreBackend = BackendBigQuery; c.BigQueryDataset = "d" }, wantErr: "BIGQUERY_PROJECT"},
		{name: "missing model key", mutate: func(c *Config) { c.GeminiAPIKey = "" }, requireModel: true, wantErr: "GEMINI_API_KEY"},
		{name: "model key optional", mutate: func(c *Config) { c.GeminiAPIKey = "" }},
		{name: "half notion", mutate: func(c *Config) { c.NotionToken = "secret" }, wantErr: "NOTION"},
		{name: "bad rate", mutate: func(c *Config) { c.RateLimitRPS = 0 }, wantErr: "RATE_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate(tt.requireModel)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestNotionEnabled(t *testing.T) {
	cfg := Config{NotionToken: "t"}
	if cfg.NotionEnabled() {
		t.Error("enabled without database")
	}
	cfg.NotionTransactionsDB = "db"
	if !cfg.NotionEnabled() {
		t.Error("not enabled with token and database")
	}
}
