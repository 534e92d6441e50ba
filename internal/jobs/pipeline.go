// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/encore/internal/config"
	"github.com/tomtom215/encore/internal/logging"
	"github.com/tomtom215/encore/internal/models"
	"github.com/tomtom215/encore/internal/store"
)

// PipelineName names a trigger pipeline.
type PipelineName string

const (
	PipelineArtists     PipelineName = "artists"
	PipelineShows       PipelineName = "shows"
	PipelineTrending    PipelineName = "trending"
	PipelineMaintenance PipelineName = "maintenance"
	PipelineAll         PipelineName = "all"
)

// Pipelines lists every pipeline.
var Pipelines = []PipelineName{PipelineArtists, PipelineShows, PipelineTrending, PipelineMaintenance, PipelineAll}

// ParsePipeline returns the pipeline named s.
func ParsePipeline(s string) (PipelineName, error) {
	for _, p := range Pipelines {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown pipeline: %s", s)
}

// syncConcurrency bounds the per-artist sync jobs a pipeline runs at once.
const syncConcurrency = 5

// Pipeline runs groups of jobs for the trigger.
type Pipeline struct {
	proc  *Processor
	store store.ArtistStore
	cfg   config.ImportConfig
	now   func() time.Time
}

// NewPipeline creates a pipeline runner.
func NewPipeline(proc *Processor, st store.ArtistStore, cfg config.ImportConfig) *Pipeline {
	return &Pipeline{proc: proc, store: st, cfg: cfg, now: time.Now}
}

// Run executes the named pipeline. The result is successful when every job
// in it succeeded. Individual job failures never stop the pipeline.
func (p *Pipeline) Run(ctx context.Context, name PipelineName) PipelineResult {
	start := time.Now()
	res := PipelineResult{Timestamp: p.now().UTC(), Results: []JobResult{}}
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}

	switch name {
	case PipelineArtists:
		res.Results = append(res.Results, p.artists(ctx, p.candidates(ctx, &res))...)
	case PipelineShows:
		res.Results = append(res.Results, p.shows(ctx, p.candidates(ctx, &res))...)
	case PipelineTrending:
		res.Results = append(res.Results, p.trending(ctx))
	case PipelineMaintenance:
		res.Results = append(res.Results, p.maintenance(ctx)...)
	case PipelineAll:
		// One candidate list serves both syncs so the artists stage's
		// last-sync stamps do not shift the shows stage onto other artists.
		artists := p.candidates(ctx, &res)
		res.Results = append(res.Results, p.artists(ctx, artists)...)
		res.Results = append(res.Results, p.shows(ctx, artists)...)
		res.Results = append(res.Results, p.trending(ctx))
		res.Results = append(res.Results, p.maintenance(ctx)...)
	default:
		res.Results = append(res.Results, JobResult{Error: fmt.Sprintf("unknown pipeline: %s", name)})
	}

	res.Success = true
	for _, r := range res.Results {
		if !r.Success {
			res.Success = false
			break
		}
	}
	res.TotalDuration = time.Since(start).Milliseconds()
	logging.Ctx(ctx).Info().
		Str("pipeline", string(name)).
		Bool("success", res.Success).
		Int("jobs", len(res.Results)).
		Int64("duration_ms", res.TotalDuration).
		Msg("Pipeline finished")
	return res
}

// candidates lists the least recently synced artists. A listing failure is
// recorded as a failed result.
func (p *Pipeline) candidates(ctx context.Context, res *PipelineResult) []models.Artist {
	stale := p.cfg.SyncStaleAfter
	if stale <= 0 {
		stale = 24 * time.Hour
	}
	artists, err := p.store.ListArtistsForSync(ctx, p.now().Add(-stale), p.cfg.SyncBatchSize)
	if err != nil {
		res.Results = append(res.Results, JobResult{Error: fmt.Sprintf("list artists for sync: %v", err)})
		return nil
	}
	return artists
}

// artists refreshes the catalog of each artist that has a catalog id.
func (p *Pipeline) artists(ctx context.Context, artists []models.Artist) []JobResult {
	if p.proc.deps.CatalogSync == nil {
		return nil
	}
	var ids []string
	for _, a := range artists {
		if a.CatalogProviderID != "" {
			ids = append(ids, a.ID)
		}
	}
	return p.fanOut(ctx, ids, JobCatalogSync, PipelineArtists)
}

// shows syncs each artist's shows, then the setlists of its past shows.
// Stages whose provider is not configured are skipped.
func (p *Pipeline) shows(ctx context.Context, artists []models.Artist) []JobResult {
	var out []JobResult
	if p.proc.deps.ShowSync != nil {
		var ids []string
		for _, a := range artists {
			if a.ShowProviderID != "" {
				ids = append(ids, a.ID)
			}
		}
		out = p.fanOut(ctx, ids, JobShowSync, PipelineShows)
	}
	if p.proc.deps.SetlistSync != nil {
		ids := make([]string, len(artists))
		for i, a := range artists {
			ids[i] = a.ID
		}
		out = append(out, p.fanOut(ctx, ids, JobSetlistSync, PipelineShows)...)
	}
	return out
}

func (p *Pipeline) trending(ctx context.Context) JobResult {
	return p.proc.Execute(ctx, JobTrending, nil, p.jobContext(PipelineTrending, PriorityMedium))
}

func (p *Pipeline) maintenance(ctx context.Context) []JobResult {
	jc := p.jobContext(PipelineMaintenance, PriorityLow)
	cleanup := p.proc.Execute(ctx, JobCleanup, nil, jc)
	jc = p.jobContext(PipelineMaintenance, PriorityLow)
	return []JobResult{cleanup, p.proc.Execute(ctx, JobHealthCheck, nil, jc)}
}

// fanOut runs one sync job per artist id with bounded concurrency. Results
// keep the order of ids.
func (p *Pipeline) fanOut(ctx context.Context, ids []string, t JobType, pipeline PipelineName) []JobResult {
	results := make([]JobResult, len(ids))
	var g errgroup.Group
	g.SetLimit(syncConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			payload, err := json.Marshal(ProviderSyncPayload{ArtistID: id})
			if err != nil {
				results[i] = JobResult{JobType: t, Error: err.Error()}
				return nil
			}
			results[i] = p.proc.Execute(ctx, t, payload, p.jobContext(pipeline, PriorityLow))
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Pipeline) jobContext(pipeline PipelineName, prio Priority) JobContext {
	return JobContext{Priority: prio, Metadata: map[string]string{"pipeline": string(pipeline)}}
}
