// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package services

import (
	"context"
	"time"

	"github.com/tomtom215/encore/internal/logging"
)

// GCRunner is satisfied by *state.State.
type GCRunner interface {
	RunGC() error
}

// DefaultGCInterval is how often value log GC runs.
const DefaultGCInterval = 10 * time.Minute

// StateGCService reclaims state backend space periodically. GC errors are
// logged and do not stop the service.
type StateGCService struct {
	runner   GCRunner
	interval time.Duration
}

// NewStateGCService creates the service. A non-positive interval means
// DefaultGCInterval.
func NewStateGCService(runner GCRunner, interval time.Duration) *StateGCService {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	return &StateGCService{runner: runner, interval: interval}
}

// Serve implements suture.Service.
func (s *StateGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.runner.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("State GC failed")
				continue
			}
			logging.Debug().Dur("duration", time.Since(start)).Msg("State GC finished")
		}
	}
}

func (s *StateGCService) String() string { return "state-gc" }
