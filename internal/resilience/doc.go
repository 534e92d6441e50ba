// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

/*
Package resilience protects provider calls.

CircuitBreaker wraps sony/gobreaker with Encore's state model:

  - closed: calls pass; FailureThreshold consecutive failures open the circuit
  - open: calls are rejected with *CircuitOpenError until ResetTimeout elapses
  - half-open: HalfOpenRequests trial calls are admitted; that many
    consecutive successes close the circuit, any failure reopens it

BreakerRegistry hands out one breaker per dependency name and is injected
into every component that calls out, so there is no package-level breaker state.

RateLimiter is a fixed-window counter over a WindowStore. MemoryWindowStore
keeps windows in process; BadgerWindowStore persists them with a TTL.
Pacer spaces calls using golang.org/x/time/rate and Delay is a cancellable sleep.

Usage:

	b := registry.Get("ticketmaster")
	events, err := resilience.Execute(ctx, b, func(ctx context.Context) ([]Event, error) {
	    return client.Events(ctx, id, page)
	}, nil)
	if errors.Is(err, resilience.ErrCircuitOpen) {
	    // provider isolated; skip the remaining pages
	}
*/
package resilience
