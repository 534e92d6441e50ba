// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, first match wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/encore/config.yaml",
	"/etc/encore/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Driver:    "duckdb",
			Path:      "/data/encore.duckdb",
			MaxMemory: "1GB",
		},
		State: StateConfig{
			Backend:     "badger",
			Path:        "/data/state",
			ProgressTTL: 24 * time.Hour,
		},
		Providers: ProvidersConfig{
			Ticketmaster: ProviderConfig{
				BaseURL:     "https://app.ticketmaster.com/discovery/v2",
				Timeout:     15 * time.Second,
				RatePerSec:  5,
				Burst:       1,
				QuotaReqs:   5000,
				QuotaWindow: 24 * time.Hour,
				PageSize:    200,
				MaxPages:    5,
			},
			Spotify: ProviderConfig{
				BaseURL:     "https://api.spotify.com/v1",
				AuthURL:     "https://accounts.spotify.com/api/token",
				Timeout:     15 * time.Second,
				RatePerSec:  10,
				Burst:       2,
				QuotaReqs:   600,
				QuotaWindow: time.Minute,
				PageSize:    50,
				MaxPages:    10,
			},
			Setlistfm: ProviderConfig{
				BaseURL:     "https://api.setlist.fm/rest/1.0",
				Timeout:     15 * time.Second,
				RatePerSec:  2,
				Burst:       1,
				QuotaReqs:   1440,
				QuotaWindow: 24 * time.Hour,
				PageSize:    20,
				MaxPages:    1,
			},
		},
		Breakers: BreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     60 * time.Second,
			MonitoringPeriod: 2 * time.Minute,
			HalfOpenRequests: 3,
		},
		Import: ImportConfig{
			BatchConcurrency: 50,
			StuckAfter:       time.Hour,
			SyncBatchSize:    25,
			SyncStaleAfter:   24 * time.Hour,
			CleanupAfterDays: 7,
			TrackConcurrency: 4,
			SetlistShowLimit: 20,
		},
		Trending: TrendingConfig{
			BatchSize:    50,
			RecentWindow: 24 * time.Hour,
			WeekWindow:   7 * 24 * time.Hour,
		},
		Scheduler: SchedulerConfig{
			Enabled:     false,
			Artists:     "0 */4 * * *",
			Shows:       "30 */4 * * *",
			Trending:    "*/30 * * * *",
			Maintenance: "15 3 * * *",
		},
		Events: EventsConfig{
			Backend: "none",
			NATSURL: "nats://127.0.0.1:4222",
			Topic:   "encore.jobs.completed",
		},
	}
}

// Load reads configuration from layered sources:
//  1. built-in defaults
//  2. optional YAML config file
//  3. environment variables
//
// Later layers override earlier ones. The result is validated.
func Load() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored so the host environment cannot leak in.
var envMappings = map[string]string{
	"http_host":                  "server.host",
	"http_port":                  "server.port",
	"http_read_timeout":          "server.read_timeout",
	"http_write_timeout":         "server.write_timeout",
	"http_shutdown_timeout":      "server.shutdown_timeout",
	"rate_limit_requests":        "server.rate_limit_reqs",
	"rate_limit_window":          "server.rate_limit_window",
	"cron_secret":                "trigger.secret",
	"cron_accept_jwt":            "trigger.accept_jwt",
	"log_level":                  "logging.level",
	"log_format":                 "logging.format",
	"log_caller":                 "logging.caller",
	"database_driver":            "database.driver",
	"duckdb_path":                "database.path",
	"duckdb_max_memory":          "database.max_memory",
	"duckdb_threads":             "database.threads",
	"state_backend":              "state.backend",
	"state_path":                 "state.path",
	"progress_ttl":               "state.progress_ttl",
	"ticketmaster_url":           "providers.ticketmaster.base_url",
	"ticketmaster_api_key":       "providers.ticketmaster.api_key",
	"ticketmaster_rate":          "providers.ticketmaster.rate_per_sec",
	"ticketmaster_max_pages":     "providers.ticketmaster.max_pages",
	"spotify_url":                "providers.spotify.base_url",
	"spotify_auth_url":           "providers.spotify.auth_url",
	"spotify_client_id":          "providers.spotify.client_id",
	"spotify_client_secret":      "providers.spotify.client_secret",
	"spotify_rate":               "providers.spotify.rate_per_sec",
	"setlistfm_url":              "providers.setlistfm.base_url",
	"setlistfm_api_key":          "providers.setlistfm.api_key",
	"setlistfm_rate":             "providers.setlistfm.rate_per_sec",
	"breaker_failure_threshold":  "breakers.failure_threshold",
	"breaker_reset_timeout":      "breakers.reset_timeout",
	"breaker_monitoring_period":  "breakers.monitoring_period",
	"breaker_half_open_requests": "breakers.half_open_requests",
	"import_batch_concurrency":   "import.batch_concurrency",
	"import_stuck_after":         "import.stuck_after",
	"import_sync_batch_size":     "import.sync_batch_size",
	"import_sync_stale_after":    "import.sync_stale_after",
	"import_cleanup_after_days":  "import.cleanup_after_days",
	"import_track_concurrency":   "import.track_concurrency",
	"import_setlist_show_limit":  "import.setlist_show_limit",
	"trending_batch_size":        "trending.batch_size",
	"trending_recent_window":     "trending.recent_window",
	"trending_week_window":       "trending.week_window",
	"scheduler_enabled":          "scheduler.enabled",
	"schedule_artists":           "scheduler.artists",
	"schedule_shows":             "scheduler.shows",
	"schedule_trending":          "scheduler.trending",
	"schedule_maintenance":       "scheduler.maintenance",
	"events_backend":             "events.backend",
	"nats_url":                   "events.nats_url",
	"events_topic":               "events.topic",
}

// envTransformFunc maps CRON_SECRET to trigger.secret, HTTP_PORT to server.port, etc.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
