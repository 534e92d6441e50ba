// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/encore/internal/metrics"
)

// Window is the fixed-window counter kept per key.
type Window struct {
	Count   int       `json:"count"`
	ResetAt time.Time `json:"reset_at"`
}

// expired reports whether the window has ended at now.
func (w Window) expired(now time.Time) bool {
	return now.After(w.ResetAt)
}

// admit applies one request to w at now. It returns the updated window and
// whether the request is allowed. The caller persists the result atomically.
func admit(w Window, found bool, maxRequests int, window time.Duration, now time.Time) (Window, bool) {
	if !found || w.expired(now) {
		return Window{Count: 1, ResetAt: now.Add(window)}, true
	}
	if w.Count >= maxRequests {
		return w, false
	}
	w.Count++
	return w, true
}

// WindowStore performs the read-modify-write of one key's window as a single
// atomic step.
type WindowStore interface {
	Increment(ctx context.Context, key string, maxRequests int, window time.Duration, now time.Time) (bool, error)
}

// RateLimiter is a fixed-window counter keyed by caller-chosen strings.
type RateLimiter struct {
	store WindowStore
	now   func() time.Time
}

// NewRateLimiter creates a limiter over store.
func NewRateLimiter(store WindowStore) *RateLimiter {
	return &RateLimiter{store: store, now: time.Now}
}

// WithClock replaces the limiter's clock. Intended for tests.
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.now = now
	return l
}

// CheckLimit counts one request against key. It allows exactly maxRequests
// calls per window; a non-positive maxRequests denies everything.
func (l *RateLimiter) CheckLimit(ctx context.Context, key string, maxRequests int, window time.Duration) (bool, error) {
	if maxRequests <= 0 {
		metrics.RecordRateLimit(key, false)
		return false, nil
	}
	if window <= 0 {
		return false, fmt.Errorf("rate limit %s: window must be positive", key)
	}

	allowed, err := l.store.Increment(ctx, key, maxRequests, window, l.now())
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	metrics.RecordRateLimit(key, allowed)
	return allowed, nil
}

// Delay sleeps for d or until ctx is done.
func Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
