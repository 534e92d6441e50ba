// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

// Package trending recomputes the trending scores of artists, shows and songs
// from vote aggregates. Scores are pure functions of their inputs, so a run
// over unchanged data writes the same values again.
package trending

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/encore/internal/config"
	"github.com/tomtom215/encore/internal/logging"
	"github.com/tomtom215/encore/internal/metrics"
	"github.com/tomtom215/encore/internal/models"
	"github.com/tomtom215/encore/internal/store"
)

// Options narrow a run. With no EntityIDs every artist, upcoming show and
// song is scored; otherwise only the listed ids of each kind. A zero
// TimeWindow uses the configured recent window.
type Options struct {
	EntityIDs  []string      `json:"entityIds,omitempty"`
	TimeWindow time.Duration `json:"timeWindow,omitempty"`
}

// Result counts the scores written.
type Result struct {
	ArtistsUpdated int           `json:"artistsUpdated"`
	ShowsUpdated   int           `json:"showsUpdated"`
	SongsUpdated   int           `json:"songsUpdated"`
	Failed         int           `json:"failed"`
	Duration       time.Duration `json:"duration"`
	Timestamp      time.Time     `json:"timestamp"`
}

// Calculator scores entities and writes the scores back.
type Calculator struct {
	store     store.TrendingStore
	batchSize int
	recent    time.Duration
	week      time.Duration
	now       func() time.Time
}

// NewCalculator creates a calculator.
func NewCalculator(st store.TrendingStore, cfg config.TrendingConfig) *Calculator {
	c := &Calculator{
		store:     st,
		batchSize: cfg.BatchSize,
		recent:    cfg.RecentWindow,
		week:      cfg.WeekWindow,
		now:       time.Now,
	}
	if c.batchSize <= 0 {
		c.batchSize = 50
	}
	if c.recent <= 0 {
		c.recent = 24 * time.Hour
	}
	if c.week <= 0 {
		c.week = 7 * 24 * time.Hour
	}
	return c
}

// WithClock replaces the calculator's clock.
func (c *Calculator) WithClock(now func() time.Time) *Calculator {
	c.now = now
	return c
}

type scored struct {
	id    string
	score float64
}

// Calculate scores artists, shows and songs in turn. A failed aggregate query
// skips its kind and is returned joined with any others; the counts of the
// kinds that ran are still reported. Failed score writes are counted in
// Result.Failed and never stop the run.
func (c *Calculator) Calculate(ctx context.Context, opts Options) (Result, error) {
	now := c.now()
	start := time.Now()
	w := models.TrendingWindows{Now: now, RecentWindow: c.recent, WeekWindow: c.week}
	if opts.TimeWindow > 0 {
		w.RecentWindow = opts.TimeWindow
	}
	res := Result{Timestamp: now}
	var errs []error

	if artists, err := c.store.ArtistTrendingInputs(ctx, opts.EntityIDs, w); err != nil {
		errs = append(errs, fmt.Errorf("artist inputs: %w", err))
	} else {
		list := make([]scored, len(artists))
		for i, in := range artists {
			list[i] = scored{in.ArtistID, ArtistScore(in)}
		}
		ok, failed := c.write(ctx, models.KindArtist, list, now)
		res.ArtistsUpdated, res.Failed = ok, res.Failed+failed
	}

	if shows, err := c.store.ShowTrendingInputs(ctx, opts.EntityIDs, w); err != nil {
		errs = append(errs, fmt.Errorf("show inputs: %w", err))
	} else {
		list := make([]scored, len(shows))
		for i, in := range shows {
			list[i] = scored{in.ShowID, ShowScore(in, now)}
		}
		ok, failed := c.write(ctx, models.KindShow, list, now)
		res.ShowsUpdated, res.Failed = ok, res.Failed+failed
	}

	if songs, err := c.store.SongTrendingInputs(ctx, opts.EntityIDs, w); err != nil {
		errs = append(errs, fmt.Errorf("song inputs: %w", err))
	} else {
		list := make([]scored, len(songs))
		for i, in := range songs {
			list[i] = scored{in.SongID, SongScore(in)}
		}
		ok, failed := c.write(ctx, models.KindSong, list, now)
		res.SongsUpdated, res.Failed = ok, res.Failed+failed
	}

	res.Duration = time.Since(start)
	logging.Ctx(ctx).Info().
		Int("artists", res.ArtistsUpdated).
		Int("shows", res.ShowsUpdated).
		Int("songs", res.SongsUpdated).
		Int("failed", res.Failed).
		Dur("duration", res.Duration).
		Msg("Trending scores updated")
	return res, errors.Join(errs...)
}

// write stores every score with at most batchSize writes in flight.
func (c *Calculator) write(ctx context.Context, kind models.EntityKind, list []scored, at time.Time) (updated, failed int) {
	var ok, bad atomic.Int64
	var g errgroup.Group
	g.SetLimit(c.batchSize)
	for _, s := range list {
		g.Go(func() error {
			if err := c.store.UpdateTrendingScore(ctx, kind, s.id, s.score, at); err != nil {
				bad.Add(1)
				metrics.RecordTrendingUpdate(string(kind), false)
				logging.Ctx(ctx).Warn().Err(err).
					Str("kind", string(kind)).
					Str("id", s.id).
					Msg("Failed to write trending score")
				return nil
			}
			ok.Add(1)
			metrics.RecordTrendingUpdate(string(kind), true)
			return nil
		})
	}
	_ = g.Wait()
	return int(ok.Load()), int(bad.Load())
}
