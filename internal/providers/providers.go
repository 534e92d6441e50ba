// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

// Package providers holds the HTTP clients of the external data providers:
// the show provider (ticketing), the catalog provider (music metadata) and
// the setlist provider.
//
// Every outbound request passes, in order, through the provider's quota
// counter (resilience.RateLimiter), its pacer and its circuit breaker. A 429
// is retried with backoff inside a single breaker call. Response shapes are
// adapter details and are mapped onto the small types in this package.
package providers

import (
	"github.com/tomtom215/encore/internal/config"
	"github.com/tomtom215/encore/internal/resilience"
)

// Set is the full provider collaborator.
type Set struct {
	Shows    ShowProvider
	Catalog  CatalogProvider
	Setlists SetlistProvider
}

// New builds all provider clients from cfg.
func New(cfg *config.ProvidersConfig, breakers *resilience.BreakerRegistry, limiter *resilience.RateLimiter) *Set {
	return &Set{
		Shows:    NewTicketmasterClient(&cfg.Ticketmaster, NewGuard(Ticketmaster, &cfg.Ticketmaster, breakers, limiter)),
		Catalog:  NewSpotifyClient(&cfg.Spotify, NewGuard(Spotify, &cfg.Spotify, breakers, limiter)),
		Setlists: NewSetlistfmClient(&cfg.Setlistfm, NewGuard(Setlistfm, &cfg.Setlistfm, breakers, limiter)),
	}
}

// BreakerOverrides collects the per-provider breaker settings, with zero
// fields inherited from defaults.
func BreakerOverrides(cfg *config.ProvidersConfig, defaults config.BreakerConfig) map[string]resilience.BreakerSettings {
	toSettings := func(b config.BreakerConfig) resilience.BreakerSettings {
		m := b.Merge(defaults)
		return resilience.BreakerSettings{
			FailureThreshold: m.FailureThreshold,
			ResetTimeout:     m.ResetTimeout,
			MonitoringPeriod: m.MonitoringPeriod,
			HalfOpenRequests: m.HalfOpenRequests,
		}
	}
	return map[string]resilience.BreakerSettings{
		Ticketmaster: toSettings(cfg.Ticketmaster.Breaker),
		Spotify:      toSettings(cfg.Spotify.Breaker),
		Setlistfm:    toSettings(cfg.Setlistfm.Breaker),
	}
}

var (
	_ ShowProvider    = (*TicketmasterClient)(nil)
	_ CatalogProvider = (*SpotifyClient)(nil)
	_ SetlistProvider = (*SetlistfmClient)(nil)
)
