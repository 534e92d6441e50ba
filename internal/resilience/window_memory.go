// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package resilience

import (
	"context"
	"sync"
	"time"
)

// sweepEvery is how many increments pass between sweeps of expired keys.
const sweepEvery = 256

// MemoryWindowStore keeps windows in a mutex-guarded map.
type MemoryWindowStore struct {
	mu      sync.Mutex
	windows map[string]Window
	calls   int
}

// NewMemoryWindowStore creates an empty store.
func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{windows: make(map[string]Window)}
}

// Increment implements WindowStore.
func (s *MemoryWindowStore) Increment(_ context.Context, key string, maxRequests int, window time.Duration, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.calls%sweepEvery == 0 {
		for k, w := range s.windows {
			if w.expired(now) {
				delete(s.windows, k)
			}
		}
	}

	w, found := s.windows[key]
	w, allowed := admit(w, found, maxRequests, window, now)
	s.windows[key] = w
	return allowed, nil
}

// Len returns the number of tracked keys.
func (s *MemoryWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
