// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/encore/internal/logging"
)

// minSecretLength is the shortest accepted trigger secret.
const minSecretLength = 16

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateTrigger(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := validateBreaker("breakers", c.Breakers); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative")
	}
	return nil
}

func (c *Config) validateTrigger() error {
	if c.Trigger.Secret == "" {
		return fmt.Errorf("CRON_SECRET is required")
	}
	if len(c.Trigger.Secret) < minSecretLength {
		return fmt.Errorf("CRON_SECRET must be at least %d characters", minSecretLength)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Database.Driver {
	case "memory":
	case "duckdb":
		if c.Database.Path == "" {
			return fmt.Errorf("DUCKDB_PATH is required when DATABASE_DRIVER=duckdb")
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be duckdb or memory, got %q", c.Database.Driver)
	}

	switch c.State.Backend {
	case "memory":
	case "badger":
		if c.State.Path == "" {
			return fmt.Errorf("STATE_PATH is required when STATE_BACKEND=badger")
		}
	default:
		return fmt.Errorf("STATE_BACKEND must be badger or memory, got %q", c.State.Backend)
	}
	return nil
}

func (c *Config) validateProviders() error {
	providers := map[string]ProviderConfig{
		"ticketmaster": c.Providers.Ticketmaster,
		"spotify":      c.Providers.Spotify,
		"setlistfm":    c.Providers.Setlistfm,
	}
	for name, p := range providers {
		if err := validateHTTPURL(p.BaseURL, name+".base_url"); err != nil {
			return err
		}
		if p.RatePerSec <= 0 {
			return fmt.Errorf("%s.rate_per_sec must be positive", name)
		}
		if p.QuotaReqs < 1 || p.QuotaWindow <= 0 {
			return fmt.Errorf("%s quota must allow at least one request per positive window", name)
		}
		if p.PageSize < 1 || p.MaxPages < 1 {
			return fmt.Errorf("%s page_size and max_pages must be at least 1", name)
		}
		if err := validateBreaker(name+".breaker", p.Breaker.Merge(c.Breakers)); err != nil {
			return err
		}
	}
	if c.Providers.Spotify.AuthURL != "" {
		if err := validateHTTPURL(c.Providers.Spotify.AuthURL, "spotify.auth_url"); err != nil {
			return err
		}
	}
	return nil
}

func validateBreaker(field string, b BreakerConfig) error {
	if b.FailureThreshold < 1 {
		return fmt.Errorf("%s.failure_threshold must be at least 1", field)
	}
	if b.ResetTimeout <= 0 {
		return fmt.Errorf("%s.reset_timeout must be positive", field)
	}
	if b.HalfOpenRequests < 1 {
		return fmt.Errorf("%s.half_open_requests must be at least 1", field)
	}
	return nil
}

func (c *Config) validateJobs() error {
	if c.Import.BatchConcurrency < 1 || c.Import.BatchConcurrency > 50 {
		return fmt.Errorf("IMPORT_BATCH_CONCURRENCY must be between 1 and 50, got %d", c.Import.BatchConcurrency)
	}
	if c.Import.StuckAfter <= 0 {
		return fmt.Errorf("IMPORT_STUCK_AFTER must be positive")
	}
	if c.Trending.BatchSize < 1 {
		return fmt.Errorf("TRENDING_BATCH_SIZE must be at least 1")
	}
	if c.Trending.RecentWindow <= 0 || c.Trending.WeekWindow < c.Trending.RecentWindow {
		return fmt.Errorf("trending windows must be positive and week_window >= recent_window")
	}
	return nil
}

func (c *Config) validateEvents() error {
	switch c.Events.Backend {
	case "none", "channel":
		return nil
	case "nats":
		if c.Events.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when EVENTS_BACKEND=nats")
		}
		if !strings.HasPrefix(c.Events.NATSURL, "nats://") && !strings.HasPrefix(c.Events.NATSURL, "tls://") {
			return fmt.Errorf("NATS_URL must use nats:// or tls://, got %q", c.Events.NATSURL)
		}
		return nil
	default:
		return fmt.Errorf("EVENTS_BACKEND must be none, channel or nats, got %q", c.Events.Backend)
	}
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
