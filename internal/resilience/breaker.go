// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/encore/internal/logging"
	"github.com/tomtom215/encore/internal/metrics"
)

// State is the externally visible breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateHalfOpen State = "half-open"
	StateOpen     State = "open"
)

// BreakerSettings configures a single breaker.
type BreakerSettings struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before admitting trial calls.
	ResetTimeout time.Duration

	// MonitoringPeriod clears closed-state counts periodically. Zero never clears.
	MonitoringPeriod time.Duration

	// HalfOpenRequests is both the number of trial calls admitted while
	// half-open and the number of consecutive successes that closes the circuit.
	HalfOpenRequests int
}

// DefaultBreakerSettings returns the settings used when none are configured.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
		MonitoringPeriod: 2 * time.Minute,
		HalfOpenRequests: 3,
	}
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	d := DefaultBreakerSettings()
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = d.FailureThreshold
	}
	if s.ResetTimeout <= 0 {
		s.ResetTimeout = d.ResetTimeout
	}
	if s.MonitoringPeriod < 0 {
		s.MonitoringPeriod = 0
	}
	if s.HalfOpenRequests <= 0 {
		s.HalfOpenRequests = d.HalfOpenRequests
	}
	return s
}

// BreakerMetrics is a point-in-time view of a breaker.
type BreakerMetrics struct {
	Name         string `json:"name"`
	State        State  `json:"state"`
	FailureCount uint32 `json:"failure_count"`

	// HalfOpenCount is the number of trial calls admitted in the current
	// half-open period, in flight or finished. Cancelled calls do not count.
	HalfOpenCount uint32 `json:"half_open_count"`

	// HalfOpenSuccesses is the number of consecutive successful trials.
	HalfOpenSuccesses uint32 `json:"half_open_successes"`

	OpenSince *time.Time `json:"open_since,omitempty"`
}

// CircuitBreaker isolates one external dependency. State transitions are
// reported to Prometheus and the log.
//
// The underlying gobreaker uses the wall clock for its interval and timeout;
// tests exercise recovery with short timeouts.
type CircuitBreaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]

	mu        sync.Mutex
	openSince time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(name string, settings BreakerSettings) *CircuitBreaker {
	settings = settings.withDefaults()
	b := &CircuitBreaker{name: name}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	threshold := uint32(settings.FailureThreshold) //nolint:gosec // bounded by config validation
	b.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(settings.HalfOpenRequests), //nolint:gosec // bounded by config validation
		Interval:    settings.MonitoringPeriod,
		Timeout:     settings.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures < threshold {
				return false
			}
			logging.Warn().
				Str("breaker", name).
				Uint32("consecutive_failures", counts.ConsecutiveFailures).
				Msg("Opening circuit")
			return true
		},
		OnStateChange: b.onStateChange,
		IsSuccessful:  countsAsSuccess,
		IsExcluded:    isExcluded,
	})
	return b
}

// onStateChange runs with the gobreaker lock held; it must not call back into b.cb.
func (b *CircuitBreaker) onStateChange(name string, from, to gobreaker.State) {
	fromStr, toStr := string(convertState(from)), string(convertState(to))
	logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("Circuit breaker state transition")

	metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
	metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()

	b.mu.Lock()
	defer b.mu.Unlock()
	switch to {
	case gobreaker.StateOpen:
		b.openSince = time.Now()
	case gobreaker.StateClosed:
		b.openSince = time.Time{}
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
	}
}

// Name returns the dependency name.
func (b *CircuitBreaker) Name() string { return b.name }

// State returns the current state, applying any due open to half-open transition.
func (b *CircuitBreaker) State() State {
	return convertState(b.cb.State())
}

// Metrics returns a snapshot of the breaker.
func (b *CircuitBreaker) Metrics() BreakerMetrics {
	state := b.State()
	counts := b.cb.Counts()

	m := BreakerMetrics{
		Name:         b.name,
		State:        state,
		FailureCount: counts.ConsecutiveFailures,
	}
	if state == StateHalfOpen {
		m.HalfOpenCount = admittedTrials(counts)
		m.HalfOpenSuccesses = counts.ConsecutiveSuccesses
	}

	b.mu.Lock()
	if !b.openSince.IsZero() && state != StateClosed {
		t := b.openSince
		m.OpenSince = &t
	}
	b.mu.Unlock()
	return m
}

// Fallback produces a substitute result when the breaker rejects a call.
type Fallback[T any] func(ctx context.Context, rejected error) (T, error)

// Execute runs op through the breaker. When the breaker rejects the call, op
// is not invoked: fallback is used if given, otherwise a *CircuitOpenError is
// returned. The breaker never retries.
func Execute[T any](ctx context.Context, b *CircuitBreaker, op func(context.Context) (T, error), fallback Fallback[T]) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	result, err := b.cb.Execute(func() (any, error) {
		return op(ctx)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			rejected := &CircuitOpenError{Name: b.name, cause: err}
			if fallback != nil {
				metrics.CircuitBreakerRequests.WithLabelValues(b.name, "fallback").Inc()
				return fallback(ctx, rejected)
			}
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Ctx(ctx).Debug().Str("breaker", b.name).Msg("Request rejected")
			return zero, rejected
		}

		if isExcluded(err) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "cancelled").Inc()
			return castResult[T](result, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(b.cb.Counts().ConsecutiveFailures))
		return castResult[T](result, err)
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	return castResult[T](result, nil)
}

// Do is Execute for operations without a result.
func Do(ctx context.Context, b *CircuitBreaker, op func(context.Context) error) error {
	_, err := Execute(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, nil)
	return err
}

// castResult recovers the typed value from the breaker's any result.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if result == nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, err
}

// countsAsSuccess decides what the breaker records as a success. Errors
// marked neutral mean the dependency answered.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var n neutral
	return errors.As(err, &n) && n.BreakerNeutral()
}

// isExcluded drops caller cancellation from the counts entirely: it is
// neither a success nor a failure, and a cancelled half-open trial frees its
// admission slot.
func isExcluded(err error) bool {
	return errors.Is(err, context.Canceled)
}

func admittedTrials(c gobreaker.Counts) uint32 {
	if c.Requests < c.TotalExclusions {
		return 0
	}
	return c.Requests - c.TotalExclusions
}

func convertState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
