// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package main

import (
	"errors"
	"fmt"

	"github.com/tomtom215/encore/internal/config"
	"github.com/tomtom215/encore/internal/database"
	"github.com/tomtom215/encore/internal/events"
	"github.com/tomtom215/encore/internal/importer"
	"github.com/tomtom215/encore/internal/ingest"
	"github.com/tomtom215/encore/internal/jobs"
	"github.com/tomtom215/encore/internal/logging"
	"github.com/tomtom215/encore/internal/progress"
	"github.com/tomtom215/encore/internal/providers"
	"github.com/tomtom215/encore/internal/resilience"
	"github.com/tomtom215/encore/internal/state"
	"github.com/tomtom215/encore/internal/store"
	"github.com/tomtom215/encore/internal/trending"
)

// app holds every long-lived component built from one configuration.
type app struct {
	cfg       *config.Config
	store     store.Store
	state     *state.State
	breakers  *resilience.BreakerRegistry
	tracker   *progress.Tracker
	publisher *events.Publisher
	processor *jobs.Processor
	pipeline  *jobs.Pipeline
}

// buildApp wires the components in dependency order. On error everything
// opened so far is closed.
func buildApp(cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if a.store, err = openStore(&cfg.Database); err != nil {
		return nil, err
	}
	if a.state, err = state.Open(cfg.State); err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}

	a.breakers = resilience.NewBreakerRegistry(
		resilience.DefaultBreakerSettings(),
		providers.BreakerOverrides(&cfg.Providers, cfg.Breakers),
	)
	limiter := resilience.NewRateLimiter(a.state.WindowStore())
	a.tracker = progress.NewTracker(a.state.ProgressStore())

	set := providers.New(&cfg.Providers, a.breakers, limiter)
	deps := importer.Deps{Store: a.store, Tracker: a.tracker, Config: cfg.Import}
	procDeps := jobs.Deps{
		Store:    a.store,
		Trending: trending.NewCalculator(a.store, cfg.Trending),
		Tracker:  a.tracker,
		Breakers: a.breakers,
		Import:   cfg.Import,
	}

	log := logging.Component("app")
	if p := cfg.Providers.Ticketmaster; p.APIKey != "" {
		deps.Shows = set.Shows
		deps.ShowIngest = ingest.NewShowIngest(set.Shows, a.store)
		procDeps.ShowSync = deps.ShowIngest
	} else {
		log.Warn().Msg("Ticketmaster API key not set; artist imports and show sync are disabled")
	}
	if p := cfg.Providers.Spotify; p.ClientID != "" && p.ClientSecret != "" {
		deps.Catalog = set.Catalog
		deps.CatalogIngest = ingest.NewCatalogIngest(set.Catalog, a.store)
		procDeps.CatalogSync = deps.CatalogIngest
	} else {
		log.Warn().Msg("Spotify credentials not set; catalog sync is disabled")
	}
	if p := cfg.Providers.Setlistfm; p.APIKey != "" {
		deps.Setlists = set.Setlists
		deps.SetlistIngest = ingest.NewSetlistIngest(set.Setlists, a.store, cfg.Import.SetlistShowLimit)
		procDeps.SetlistSync = deps.SetlistIngest
	} else {
		log.Warn().Msg("Setlist.fm API key not set; setlist sync is disabled")
	}
	if deps.Shows != nil {
		procDeps.Orchestrator = importer.New(deps)
	}

	if a.publisher, err = events.New(cfg.Events); err != nil {
		return nil, fmt.Errorf("create event publisher: %w", err)
	}
	procDeps.Publisher = a.publisher

	a.processor = jobs.NewProcessor(procDeps)
	a.pipeline = jobs.NewPipeline(a.processor, a.store, cfg.Import)
	return a, nil
}

func openStore(cfg *config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemory(), nil
	default:
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return db, nil
	}
}

// close releases everything in reverse order of opening.
func (a *app) close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.state != nil {
		errs = append(errs, a.state.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
