// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package resilience

import (
	"sort"
	"sync"
)

// BreakerRegistry owns one CircuitBreaker per dependency name. Breakers are
// created on first use and live for the lifetime of the registry.
type BreakerRegistry struct {
	defaults  BreakerSettings
	overrides map[string]BreakerSettings

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewBreakerRegistry creates a registry. overrides may be nil.
func NewBreakerRegistry(defaults BreakerSettings, overrides map[string]BreakerSettings) *BreakerRegistry {
	if overrides == nil {
		overrides = map[string]BreakerSettings{}
	}
	return &BreakerRegistry{
		defaults:  defaults,
		overrides: overrides,
		breakers:  make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for name, creating it if needed.
func (r *BreakerRegistry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	settings := r.defaults
	if o, ok := r.overrides[name]; ok {
		settings = o
	}
	b := NewCircuitBreaker(name, settings)
	r.breakers[name] = b
	return b
}

// Snapshot returns metrics for every breaker, sorted by name.
func (r *BreakerRegistry) Snapshot() []BreakerMetrics {
	r.mu.Lock()
	list := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		list = append(list, b)
	}
	r.mu.Unlock()

	out := make([]BreakerMetrics, 0, len(list))
	for _, b := range list {
		out = append(out, b.Metrics())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
