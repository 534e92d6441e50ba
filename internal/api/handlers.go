// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/encore/internal/jobs"
	"github.com/tomtom215/encore/internal/logging"
	"github.com/tomtom215/encore/internal/progress"
	"github.com/tomtom215/encore/internal/resilience"
)

// maxJobBody caps a job payload.
const maxJobBody = 1 << 20

func (router *Router) healthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"alive":  true,
		"uptime": time.Since(router.startTime).Seconds(),
	})
}

// cron runs the pipeline named by the job query parameter. The response is
// always 200 once the pipeline ran; its success field carries the outcome.
func (router *Router) cron(w http.ResponseWriter, r *http.Request) {
	name, err := jobs.ParsePipeline(r.URL.Query().Get("job"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if router.deps.Pipelines == nil {
		respondError(w, http.StatusServiceUnavailable, "pipelines are not configured", nil)
		return
	}

	logging.Ctx(r.Context()).Info().Str("pipeline", string(name)).Msg("Trigger received")
	respondJSON(w, http.StatusOK, router.deps.Pipelines.Run(r.Context(), name))
}

// runJob executes one job with the request body as its payload.
func (router *Router) runJob(w http.ResponseWriter, r *http.Request) {
	t, err := jobs.ParseJobType(chi.URLParam(r, "type"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if router.deps.Jobs == nil {
		respondError(w, http.StatusServiceUnavailable, "jobs are not configured", nil)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJobBody))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "payload too large", err)
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		respondError(w, http.StatusBadRequest, "payload is not valid JSON", nil)
		return
	}

	jc := jobs.JobContext{Priority: jobs.PriorityHigh, Metadata: map[string]string{"source": "api"}}
	res := router.deps.Jobs.Execute(r.Context(), t, body, jc)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, res)
}

func (router *Router) importProgress(w http.ResponseWriter, r *http.Request) {
	if router.deps.Progress == nil {
		respondError(w, http.StatusNotFound, "not found", nil)
		return
	}
	p, err := router.deps.Progress.GetProgress(r.Context(), chi.URLParam(r, "artistID"))
	switch {
	case errors.Is(err, progress.ErrNotFound):
		respondError(w, http.StatusNotFound, "no import progress for artist", nil)
	case err != nil:
		respondError(w, http.StatusInternalServerError, "failed to read progress", err)
	default:
		respondJSON(w, http.StatusOK, p)
	}
}

func (router *Router) breakers(w http.ResponseWriter, _ *http.Request) {
	out := []resilience.BreakerMetrics{}
	if router.deps.Breakers != nil {
		out = router.deps.Breakers.Snapshot()
	}
	respondJSON(w, http.StatusOK, map[string]any{"breakers": out})
}
