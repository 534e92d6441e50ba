// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

// Package scheduler triggers pipelines on cron schedules inside the server
// process, as an alternative to an external cron calling /api/cron.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/encore/internal/config"
	"github.com/tomtom215/encore/internal/jobs"
	"github.com/tomtom215/encore/internal/logging"
)

// PipelineRunner runs a named pipeline.
type PipelineRunner interface {
	Run(ctx context.Context, name jobs.PipelineName) jobs.PipelineResult
}

// DefaultCheckInterval is how often due schedules are looked for.
const DefaultCheckInterval = 30 * time.Second

type entry struct {
	pipeline jobs.PipelineName
	cron     *CronExpression
	next     time.Time
	running  bool
}

// Scheduler runs each configured pipeline when its cron expression is due.
// A pipeline whose previous run is still going is skipped, not queued.
type Scheduler struct {
	runner   PipelineRunner
	interval time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	mu      sync.Mutex
	entries []*entry
	wg      sync.WaitGroup
}

// New parses the configured expressions. Empty expressions are skipped.
func New(cfg config.SchedulerConfig, runner PipelineRunner) (*Scheduler, error) {
	s := &Scheduler{
		runner:   runner,
		interval: DefaultCheckInterval,
		now:      time.Now,
		logger:   logging.Component("scheduler"),
	}
	schedules := []struct {
		pipeline jobs.PipelineName
		expr     string
	}{
		{jobs.PipelineArtists, cfg.Artists},
		{jobs.PipelineShows, cfg.Shows},
		{jobs.PipelineTrending, cfg.Trending},
		{jobs.PipelineMaintenance, cfg.Maintenance},
	}
	now := s.now()
	for _, sc := range schedules {
		if sc.expr == "" {
			continue
		}
		c, err := ParseCron(sc.expr)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", sc.pipeline, err)
		}
		s.entries = append(s.entries, &entry{pipeline: sc.pipeline, cron: c, next: c.NextRun(now, nil)})
	}
	return s, nil
}

// WithClock replaces the clock and recomputes next runs. Intended for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	t := now()
	for _, e := range s.entries {
		e.next = e.cron.NextRun(t, nil)
	}
	return s
}

// NextRuns reports when each scheduled pipeline runs next.
func (s *Scheduler) NextRuns() map[jobs.PipelineName]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[jobs.PipelineName]time.Time, len(s.entries))
	for _, e := range s.entries {
		out[e.pipeline] = e.next
	}
	return out
}

// Serve implements suture.Service. It checks for due pipelines until ctx is
// cancelled, then waits for running pipelines to return.
func (s *Scheduler) Serve(ctx context.Context) error {
	defer s.wg.Wait()
	if len(s.entries) == 0 {
		s.logger.Info().Msg("No schedules configured")
		<-ctx.Done()
		return ctx.Err()
	}
	for _, e := range s.entries {
		s.logger.Info().Str("pipeline", string(e.pipeline)).Time("next_run", e.next).Msg("Scheduled pipeline")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.dispatchDue(ctx)
		}
	}
}

func (s *Scheduler) String() string { return "scheduler" }

// dispatchDue starts every due pipeline in its own goroutine and returns the
// pipelines started.
func (s *Scheduler) dispatchDue(ctx context.Context) []jobs.PipelineName {
	now := s.now()
	s.mu.Lock()
	var started []jobs.PipelineName
	for _, e := range s.entries {
		if now.Before(e.next) {
			continue
		}
		e.next = e.cron.NextRun(now, nil)
		if e.running {
			s.logger.Warn().Str("pipeline", string(e.pipeline)).Msg("Previous run still in progress, skipping")
			continue
		}
		e.running = true
		started = append(started, e.pipeline)

		s.wg.Add(1)
		go s.run(ctx, e)
	}
	s.mu.Unlock()
	return started
}

func (s *Scheduler) run(ctx context.Context, e *entry) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		e.running = false
		s.mu.Unlock()
	}()

	res := s.runner.Run(ctx, e.pipeline)
	s.logger.Info().
		Str("pipeline", string(e.pipeline)).
		Bool("success", res.Success).
		Int("jobs", len(res.Results)).
		Int64("duration_ms", res.TotalDuration).
		Msg("Scheduled pipeline finished")
}
