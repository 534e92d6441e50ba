// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package config

import "time"

// Config is the complete runtime configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Trigger   TriggerConfig   `koanf:"trigger"`
	Logging   LoggingConfig   `koanf:"logging"`
	Database  DatabaseConfig  `koanf:"database"`
	State     StateConfig     `koanf:"state"`
	Providers ProvidersConfig `koanf:"providers"`
	Breakers  BreakerConfig   `koanf:"breakers"` // Defaults; providers may override per field
	Import    ImportConfig    `koanf:"import"`
	Trending  TrendingConfig  `koanf:"trending"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Events    EventsConfig    `koanf:"events"`
}

// ServerConfig configures the trigger HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"` // Must cover the longest pipeline run
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// TriggerConfig holds the shared secret guarding the trigger endpoints.
type TriggerConfig struct {
	Secret    string `koanf:"secret"`
	AcceptJWT bool   `koanf:"accept_jwt"` // Also accept HS256 tokens signed with Secret
}

// LoggingConfig mirrors logging.Config for the loader.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig selects the storage adapter.
type DatabaseConfig struct {
	Driver    string `koanf:"driver"` // duckdb or memory
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// StateConfig selects where limiter windows and import progress live.
type StateConfig struct {
	Backend     string        `koanf:"backend"` // memory or badger
	Path        string        `koanf:"path"`
	ProgressTTL time.Duration `koanf:"progress_ttl"`
}

// ProvidersConfig groups the external data providers.
type ProvidersConfig struct {
	Ticketmaster ProviderConfig `koanf:"ticketmaster"`
	Spotify      ProviderConfig `koanf:"spotify"`
	Setlistfm    ProviderConfig `koanf:"setlistfm"`
}

// ProviderConfig configures one provider client.
type ProviderConfig struct {
	BaseURL      string        `koanf:"base_url"`
	AuthURL      string        `koanf:"auth_url"` // Token endpoint for client-credential providers
	APIKey       string        `koanf:"api_key"`
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	Timeout      time.Duration `koanf:"timeout"`
	RatePerSec   float64       `koanf:"rate_per_sec"` // Pacer rate between outbound calls
	Burst        int           `koanf:"burst"`
	QuotaReqs    int           `koanf:"quota_reqs"` // Counter budget per QuotaWindow
	QuotaWindow  time.Duration `koanf:"quota_window"`
	PageSize     int           `koanf:"page_size"`
	MaxPages     int           `koanf:"max_pages"`
	Breaker      BreakerConfig `koanf:"breaker"` // Zero fields inherit from the defaults
}

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           `koanf:"failure_threshold"`
	ResetTimeout     time.Duration `koanf:"reset_timeout"`
	MonitoringPeriod time.Duration `koanf:"monitoring_period"`
	HalfOpenRequests int           `koanf:"half_open_requests"` // Trial calls admitted and successes required to close
}

// Merge returns b with zero fields taken from defaults.
func (b BreakerConfig) Merge(defaults BreakerConfig) BreakerConfig {
	if b.FailureThreshold == 0 {
		b.FailureThreshold = defaults.FailureThreshold
	}
	if b.ResetTimeout == 0 {
		b.ResetTimeout = defaults.ResetTimeout
	}
	if b.MonitoringPeriod == 0 {
		b.MonitoringPeriod = defaults.MonitoringPeriod
	}
	if b.HalfOpenRequests == 0 {
		b.HalfOpenRequests = defaults.HalfOpenRequests
	}
	return b
}

// ImportConfig tunes the artist import orchestrator.
type ImportConfig struct {
	BatchConcurrency int           `koanf:"batch_concurrency"`
	StuckAfter       time.Duration `koanf:"stuck_after"`        // Health check threshold
	SyncBatchSize    int           `koanf:"sync_batch_size"`    // Artists per artists/shows pipeline run
	SyncStaleAfter   time.Duration `koanf:"sync_stale_after"`
	CleanupAfterDays int           `koanf:"cleanup_after_days"`
	TrackConcurrency int           `koanf:"track_concurrency"`  // Album track listings in flight per catalog ingest
	SetlistShowLimit int           `koanf:"setlist_show_limit"` // Past shows searched per setlist ingest
}

// TrendingConfig tunes the trending calculator.
type TrendingConfig struct {
	BatchSize    int           `koanf:"batch_size"`
	RecentWindow time.Duration `koanf:"recent_window"`
	WeekWindow   time.Duration `koanf:"week_window"`
}

// SchedulerConfig enables the in-process cron. Each field is a 5-field cron
// expression for the pipeline of the same name; an empty value disables it.
type SchedulerConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Artists     string `koanf:"artists"`
	Shows       string `koanf:"shows"`
	Trending    string `koanf:"trending"`
	Maintenance string `koanf:"maintenance"`
}

// EventsConfig selects the job-result event sink.
type EventsConfig struct {
	Backend string `koanf:"backend"` // none, channel or nats
	NATSURL string `koanf:"nats_url"`
	Topic   string `koanf:"topic"`
}
