// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123"

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Breakers.FailureThreshold != 5 {
		t.Errorf("Breakers.FailureThreshold = %d, want 5", cfg.Breakers.FailureThreshold)
	}
	if cfg.Breakers.HalfOpenRequests != 3 {
		t.Errorf("Breakers.HalfOpenRequests = %d, want 3", cfg.Breakers.HalfOpenRequests)
	}
	if cfg.Import.BatchConcurrency != 50 {
		t.Errorf("Import.BatchConcurrency = %d, want 50", cfg.Import.BatchConcurrency)
	}
	if cfg.Import.StuckAfter != time.Hour {
		t.Errorf("Import.StuckAfter = %v, want 1h", cfg.Import.StuckAfter)
	}
	if cfg.Trending.RecentWindow != 24*time.Hour {
		t.Errorf("Trending.RecentWindow = %v, want 24h", cfg.Trending.RecentWindow)
	}
	if cfg.Providers.Ticketmaster.PageSize != 200 {
		t.Errorf("Ticketmaster.PageSize = %d, want 200", cfg.Providers.Ticketmaster.PageSize)
	}
	if cfg.Scheduler.Enabled {
		t.Error("Scheduler should be disabled by default")
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("CRON_SECRET", "")

	_, err := LoadFile("")
	if err == nil {
		t.Fatal("expected error without CRON_SECRET")
	}
	if !strings.Contains(err.Error(), "CRON_SECRET") {
		t.Errorf("error should mention CRON_SECRET, got: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CRON_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("BREAKER_RESET_TIMEOUT", "90s")
	t.Setenv("STATE_BACKEND", "memory")
	t.Setenv("TRENDING_BATCH_SIZE", "10")
	t.Setenv("SOME_UNRELATED_VAR", "ignored")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Trigger.Secret != testSecret {
		t.Errorf("Trigger.Secret = %q", cfg.Trigger.Secret)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Breakers.ResetTimeout != 90*time.Second {
		t.Errorf("Breakers.ResetTimeout = %v, want 90s", cfg.Breakers.ResetTimeout)
	}
	if cfg.State.Backend != "memory" {
		t.Errorf("State.Backend = %q, want memory", cfg.State.Backend)
	}
	if cfg.Trending.BatchSize != 10 {
		t.Errorf("Trending.BatchSize = %d, want 10", cfg.Trending.BatchSize)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv("CRON_SECRET", testSecret)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
providers:
  ticketmaster:
    api_key: tm-key
    max_pages: 2
    breaker:
      failure_threshold: 2
scheduler:
  enabled: true
  trending: "*/10 * * * *"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	tm := cfg.Providers.Ticketmaster
	if tm.APIKey != "tm-key" || tm.MaxPages != 2 {
		t.Errorf("ticketmaster = %+v", tm)
	}
	if tm.PageSize != 200 {
		t.Errorf("file layer should keep defaults for unset fields, PageSize = %d", tm.PageSize)
	}
	merged := tm.Breaker.Merge(cfg.Breakers)
	if merged.FailureThreshold != 2 || merged.HalfOpenRequests != 3 {
		t.Errorf("merged breaker = %+v", merged)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.Trending != "*/10 * * * *" {
		t.Errorf("scheduler = %+v", cfg.Scheduler)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"short secret", func(c *Config) { c.Trigger.Secret = "short" }, "at least 16"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"bad driver", func(c *Config) { c.Database.Driver = "postgres" }, "DATABASE_DRIVER"},
		{"bad state", func(c *Config) { c.State.Backend = "redis" }, "STATE_BACKEND"},
		{"bad provider url", func(c *Config) { c.Providers.Spotify.BaseURL = "ftp://x" }, "spotify.base_url"},
		{"zero half open", func(c *Config) { c.Breakers.HalfOpenRequests = 0 }, "half_open_requests"},
		{"concurrency cap", func(c *Config) { c.Import.BatchConcurrency = 51 }, "IMPORT_BATCH_CONCURRENCY"},
		{"windows", func(c *Config) { c.Trending.WeekWindow = time.Hour }, "week_window"},
		{"nats url", func(c *Config) { c.Events.Backend = "nats"; c.Events.NATSURL = "http://x" }, "NATS_URL"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Trigger.Secret = testSecret
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
