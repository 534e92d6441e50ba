// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/encore/internal/config"
	"github.com/tomtom215/encore/internal/jobs"
)

type blockingRunner struct {
	mu      sync.Mutex
	calls   []jobs.PipelineName
	release chan struct{}
}

func (r *blockingRunner) Run(_ context.Context, name jobs.PipelineName) jobs.PipelineResult {
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()
	if r.release != nil {
		<-r.release
	}
	return jobs.PipelineResult{Success: true}
}

func (r *blockingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func TestNewRejectsBadExpression(t *testing.T) {
	_, err := New(config.SchedulerConfig{Trending: "*/0 * * * *"}, &blockingRunner{})
	if err == nil {
		t.Fatal("expected error for invalid step")
	}
}

func TestDispatchDue(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 30, 0, time.UTC)
	clk := &clock{t: start}
	runner := &blockingRunner{}
	s, err := New(config.SchedulerConfig{
		Trending:    "*/15 * * * *",
		Maintenance: "0 3 * * *",
	}, runner)
	if err != nil {
		t.Fatal(err)
	}
	s.WithClock(clk.now)

	next := s.NextRuns()
	if want := time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC); !next[jobs.PipelineTrending].Equal(want) {
		t.Errorf("trending next = %v, want %v", next[jobs.PipelineTrending], want)
	}
	if _, ok := next[jobs.PipelineArtists]; ok {
		t.Error("unconfigured pipeline scheduled")
	}

	if got := s.dispatchDue(context.Background()); len(got) != 0 {
		t.Errorf("dispatched %v before anything was due", got)
	}

	clk.set(start.Add(15 * time.Minute))
	got := s.dispatchDue(context.Background())
	s.wg.Wait()
	if len(got) != 1 || got[0] != jobs.PipelineTrending {
		t.Errorf("dispatched %v, want [trending]", got)
	}
	if want := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC); !s.NextRuns()[jobs.PipelineTrending].Equal(want) {
		t.Errorf("trending next = %v, want %v", s.NextRuns()[jobs.PipelineTrending], want)
	}
}

func TestDispatchSkipsOverlap(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	clk := &clock{t: start}
	runner := &blockingRunner{release: make(chan struct{})}
	s, err := New(config.SchedulerConfig{Shows: "* * * * *"}, runner)
	if err != nil {
		t.Fatal(err)
	}
	s.WithClock(clk.now)

	clk.set(start.Add(time.Minute))
	if got := s.dispatchDue(context.Background()); len(got) != 1 {
		t.Fatalf("first dispatch = %v", got)
	}
	clk.set(start.Add(2 * time.Minute))
	if got := s.dispatchDue(context.Background()); len(got) != 0 {
		t.Errorf("dispatched %v while the previous run was in progress", got)
	}

	close(runner.release)
	s.wg.Wait()
	clk.set(start.Add(3 * time.Minute))
	if got := s.dispatchDue(context.Background()); len(got) != 1 {
		t.Errorf("dispatch after completion = %v", got)
	}
	s.wg.Wait()
	if runner.count() != 2 {
		t.Errorf("runs = %d, want 2", runner.count())
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	s, err := New(config.SchedulerConfig{}, &blockingRunner{})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
