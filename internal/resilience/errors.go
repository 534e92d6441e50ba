// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package resilience

import "errors"

// ErrCircuitOpen matches any *CircuitOpenError via errors.Is.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitOpenError is returned when a breaker rejects a call without running it.
type CircuitOpenError struct {
	Name  string
	cause error
}

func (e *CircuitOpenError) Error() string {
	if e.cause == nil {
		return "circuit breaker " + e.Name + " rejected request"
	}
	return "circuit breaker " + e.Name + " rejected request: " + e.cause.Error()
}

// Unwrap exposes the gobreaker sentinel (ErrOpenState or ErrTooManyRequests).
func (e *CircuitOpenError) Unwrap() error { return e.cause }

// Is reports ErrCircuitOpen as matching.
func (e *CircuitOpenError) Is(target error) bool { return target == ErrCircuitOpen }

// neutral is implemented by errors that should not count against a
// dependency's health, such as a 404 for an unknown id.
type neutral interface {
	BreakerNeutral() bool
}
