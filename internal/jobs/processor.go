// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/encore/internal/config"
	"github.com/tomtom215/encore/internal/events"
	"github.com/tomtom215/encore/internal/importer"
	"github.com/tomtom215/encore/internal/logging"
	"github.com/tomtom215/encore/internal/metrics"
	"github.com/tomtom215/encore/internal/progress"
	"github.com/tomtom215/encore/internal/resilience"
	"github.com/tomtom215/encore/internal/store"
	"github.com/tomtom215/encore/internal/trending"
)

// EventPublisher receives every finished job.
type EventPublisher interface {
	PublishJobCompleted(ctx context.Context, ev events.JobCompleted) error
}

// Stores is the storage the handlers read directly.
type Stores interface {
	store.ArtistStore
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the processor's collaborators. ShowSync, CatalogSync and
// SetlistSync may be nil when the provider is not configured; their jobs
// then fail with a clear message.
type Deps struct {
	Store        Stores
	Orchestrator *importer.Orchestrator
	ShowSync     importer.Ingester
	CatalogSync  importer.Ingester
	SetlistSync  importer.Ingester
	Trending     *trending.Calculator
	Tracker      *progress.Tracker
	Breakers     *resilience.BreakerRegistry
	Publisher    EventPublisher
	Import       config.ImportConfig
}

// handlerFunc runs one job. A returned error becomes a failed result; a
// handler may also return an unsuccessful result without an error.
type handlerFunc func(ctx context.Context, payload json.RawMessage, jc JobContext) (JobResult, error)

// Processor dispatches jobs to their handlers.
type Processor struct {
	deps Deps
	now  func() time.Time
}

// NewProcessor creates a processor.
func NewProcessor(d Deps) *Processor {
	return &Processor{deps: d, now: time.Now}
}

// handler returns the handler for t. The switch covers every JobType.
func (p *Processor) handler(t JobType) (handlerFunc, bool) {
	switch t {
	case JobArtistImport:
		return p.artistImport, true
	case JobBatchImport:
		return p.batchImport, true
	case JobShowSync:
		return p.showSync, true
	case JobCatalogSync:
		return p.catalogSync, true
	case JobSetlistSync:
		return p.setlistSync, true
	case JobTrending:
		return p.trending, true
	case JobCleanup:
		return p.cleanup, true
	case JobHealthCheck:
		return p.healthCheck, true
	default:
		return nil, false
	}
}

// Execute runs one job and never returns an error: unknown types, handler
// errors and panics all become failed results. Jobs are not retried. Every
// result is timed, logged, counted and published.
func (p *Processor) Execute(ctx context.Context, t JobType, payload json.RawMessage, jc JobContext) JobResult {
	if jc.JobID == "" {
		jc.JobID = uuid.New().String()
	}
	if jc.Priority == "" {
		jc.Priority = PriorityMedium
	}
	ctx = logging.ContextWithJobID(ctx, jc.JobID)

	h, ok := p.handler(t)
	if !ok {
		res := JobResult{JobType: t, JobID: jc.JobID, Error: fmt.Sprintf("unknown job type: %s", t)}
		logging.Ctx(ctx).Warn().Str("job_type", string(t)).Msg("Rejected unknown job type")
		return res
	}

	start := time.Now()
	res := p.invoke(ctx, h, payload, jc)
	dur := time.Since(start)
	res.JobType, res.JobID, res.DurationMs = t, jc.JobID, dur.Milliseconds()

	metrics.RecordJob(string(t), dur, res.Success)
	ev := logging.Ctx(ctx).Info()
	if !res.Success {
		ev = logging.Ctx(ctx).Warn().Str("error", res.Error)
	}
	ev.Str("job_type", string(t)).
		Str("priority", string(jc.Priority)).
		Bool("success", res.Success).
		Dur("duration", dur).
		Msg("Job finished")

	p.publish(ctx, res)
	return res
}

// invoke calls h, converting an error or panic into a failed result.
func (p *Processor) invoke(ctx context.Context, h handlerFunc, payload json.RawMessage, jc JobContext) (res JobResult) {
	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Job handler panicked")
			res = JobResult{Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	res, err := h(ctx, payload, jc)
	if err != nil {
		res.Success = false
		res.Error = err.Error()
	}
	return res
}

func (p *Processor) publish(ctx context.Context, res JobResult) {
	if p.deps.Publisher == nil {
		return
	}
	err := p.deps.Publisher.PublishJobCompleted(ctx, events.JobCompleted{
		JobID:      res.JobID,
		JobType:    string(res.JobType),
		Success:    res.Success,
		Message:    res.Message,
		Error:      res.Error,
		DurationMs: res.DurationMs,
		Timestamp:  p.now().UTC(),
		Data:       res.Data,
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to publish job event")
	}
}
