// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

// Package metrics holds the Prometheus collectors for Encore.
//
// Collectors are registered on the default registry with promauto and
// exposed by the API at /metrics. Callers use the Record* helpers rather
// than touching the vectors directly where a helper exists.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "cancelled", "rejected", "fallback"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Rate Limiter Metrics
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_decisions_total",
			Help: "Rate limiter decisions per key",
		},
		[]string{"key", "decision"}, // decision: "allowed", "denied"
	)

	// Provider Metrics
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Duration of outbound provider requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	ProviderRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_request_errors_total",
			Help: "Outbound provider requests that failed",
		},
		[]string{"provider", "operation", "reason"}, // reason: "status", "transport", "decode", "rate_limited"
	)

	// Ingest Metrics
	IngestRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_records_total",
			Help: "Provider records processed by ingest",
		},
		[]string{"kind", "outcome"}, // outcome: "created", "existing", "failed"
	)

	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_duration_seconds",
			Help:    "Duration of an ingest run",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	// Import Metrics
	ArtistImports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artist_imports_total",
			Help: "Completed full artist imports",
		},
		[]string{"result"}, // "success", "failed"
	)

	// Job Metrics
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Duration of job executions",
			Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 300, 900},
		},
		[]string{"type"},
	)

	JobResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_results_total",
			Help: "Job executions by outcome",
		},
		[]string{"type", "result"}, // "success", "failed"
	)

	JobLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "job_last_success_timestamp",
			Help: "Unix timestamp of the last successful job run",
		},
		[]string{"type"},
	)

	// Trending Metrics
	TrendingUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trending_score_updates_total",
			Help: "Trending score writes by entity kind",
		},
		[]string{"kind", "result"}, // result: "updated", "failed"
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_events_published_total",
			Help: "Job result events handed to the publisher",
		},
		[]string{"result"}, // "success", "failed"
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 30, 120},
		},
		[]string{"method", "route"},
	)
)

// RecordAPIRequest records one served request. route is the matched pattern,
// not the raw path.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordProviderRequest records one outbound provider call. reason is ignored
// when err is nil.
func RecordProviderRequest(provider, operation string, duration time.Duration, reason string, err error) {
	ProviderRequestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
	if err != nil {
		ProviderRequestErrors.WithLabelValues(provider, operation, reason).Inc()
	}
}

// RecordRateLimit records a limiter decision.
func RecordRateLimit(key string, allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}
	RateLimitDecisions.WithLabelValues(key, decision).Inc()
}

// RecordIngestRecord records the outcome of one provider record.
func RecordIngestRecord(kind, outcome string) {
	IngestRecords.WithLabelValues(kind, outcome).Inc()
}

// RecordJob records a job execution.
func RecordJob(jobType string, duration time.Duration, success bool) {
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
	if success {
		JobResults.WithLabelValues(jobType, "success").Inc()
		JobLastSuccess.WithLabelValues(jobType).Set(float64(time.Now().Unix()))
		return
	}
	JobResults.WithLabelValues(jobType, "failed").Inc()
}

// RecordArtistImport records the outcome of a full import.
func RecordArtistImport(success bool) {
	if success {
		ArtistImports.WithLabelValues("success").Inc()
		return
	}
	ArtistImports.WithLabelValues("failed").Inc()
}

// RecordTrendingUpdate records a trending score write.
func RecordTrendingUpdate(kind string, ok bool) {
	if ok {
		TrendingUpdates.WithLabelValues(kind, "updated").Inc()
		return
	}
	TrendingUpdates.WithLabelValues(kind, "failed").Inc()
}

// RecordEventPublished records a publish attempt.
func RecordEventPublished(err error) {
	if err != nil {
		EventsPublished.WithLabelValues("failed").Inc()
		return
	}
	EventsPublished.WithLabelValues("success").Inc()
}
