// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/encore/internal/jobs"
	"github.com/tomtom215/encore/internal/progress"
	"github.com/tomtom215/encore/internal/resilience"
)

// PipelineRunner runs a named pipeline.
type PipelineRunner interface {
	Run(ctx context.Context, name jobs.PipelineName) jobs.PipelineResult
}

// JobRunner runs a single job.
type JobRunner interface {
	Execute(ctx context.Context, t jobs.JobType, payload json.RawMessage, jc jobs.JobContext) jobs.JobResult
}

// ProgressReader reads import progress.
type ProgressReader interface {
	GetProgress(ctx context.Context, artistID string) (*progress.SyncProgress, error)
}

// BreakerLister reports breaker state.
type BreakerLister interface {
	Snapshot() []resilience.BreakerMetrics
}

// Deps are the router's collaborators. Progress and Breakers may be nil;
// their routes then answer 404.
type Deps struct {
	Pipelines PipelineRunner
	Jobs      JobRunner
	Progress  ProgressReader
	Breakers  BreakerLister
	Auth      *SecretAuth
	RateLimit RateLimitConfig
}

// Router owns the HTTP handlers.
type Router struct {
	deps      Deps
	startTime time.Time
}

// NewRouter creates a router.
func NewRouter(d Deps) *Router {
	if d.Auth == nil {
		d.Auth = NewSecretAuth("", false)
	}
	return &Router{deps: d, startTime: time.Now()}
}

// Handler builds the chi mux.
func (router *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDWithLogging)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(rateLimit(router.deps.RateLimit))
	r.Use(instrument)

	r.Get("/health/live", router.healthLive)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(router.deps.Auth.Middleware)

		r.Get("/cron", router.cron)
		r.Post("/cron", router.cron)
		r.Post("/jobs/{type}", router.runJob)
		r.Get("/imports/{artistID}/progress", router.importProgress)
		r.Get("/breakers", router.breakers)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
	return r
}
