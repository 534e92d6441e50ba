// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces outbound calls to one provider. It is independent of the
// RateLimiter counters: the limiter enforces a quota, the pacer a cadence.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer allows perSecond calls per second with the given burst.
// A non-positive perSecond disables pacing.
func NewPacer(perSecond float64, burst int) *Pacer {
	if perSecond <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// NewIntervalPacer allows one call every interval.
func NewIntervalPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return NewPacer(0, 0)
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call may proceed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
