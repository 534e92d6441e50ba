// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/encore/internal/importer"
	"github.com/tomtom215/encore/internal/ingest"
	"github.com/tomtom215/encore/internal/logging"
	"github.com/tomtom215/encore/internal/models"
	"github.com/tomtom215/encore/internal/resilience"
	"github.com/tomtom215/encore/internal/trending"
)

// stuckImportThreshold applies when the import config sets none.
const stuckImportThreshold = time.Hour

func (p *Processor) artistImport(ctx context.Context, payload json.RawMessage, _ JobContext) (JobResult, error) {
	in, err := decode[ArtistImportPayload](payload)
	if err != nil {
		return JobResult{}, err
	}
	if p.deps.Orchestrator == nil {
		return JobResult{}, errors.New("artist import is not configured")
	}

	h, err := p.deps.Orchestrator.InitiateImport(ctx, in.ProviderAttractionID)
	if err != nil {
		return JobResult{}, fmt.Errorf("initiate import: %w", err)
	}
	full := p.deps.Orchestrator.RunFullImport(ctx, h.ArtistID)
	data := map[string]any{"artist": h, "import": full}
	if !full.Success {
		return JobResult{Data: data, Error: full.Error, Message: "artist import finished with errors"}, nil
	}
	return JobResult{Success: true, Data: data, Message: fmt.Sprintf("imported artist %s", h.Slug)}, nil
}

func (p *Processor) batchImport(ctx context.Context, payload json.RawMessage, _ JobContext) (JobResult, error) {
	in, err := decode[BatchImportPayload](payload)
	if err != nil {
		return JobResult{}, err
	}
	if p.deps.Orchestrator == nil {
		return JobResult{}, errors.New("artist import is not configured")
	}

	results := p.deps.Orchestrator.RunBatchImportWithLimit(ctx, in.ProviderAttractionIDs, in.Config.concurrency(p.deps.Import.BatchConcurrency))
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	res := JobResult{
		Success: failed == 0,
		Data: map[string]any{
			"total":     len(results),
			"succeeded": len(results) - failed,
			"failed":    failed,
			"results":   results,
		},
		Message: fmt.Sprintf("imported %d of %d artists", len(results)-failed, len(results)),
	}
	if failed > 0 {
		res.Error = fmt.Sprintf("%d of %d imports failed", failed, len(results))
	}
	return res, nil
}

func (p *Processor) showSync(ctx context.Context, payload json.RawMessage, _ JobContext) (JobResult, error) {
	return p.providerSync(ctx, payload, "show", p.deps.ShowSync, func(a *models.Artist) string { return a.ShowProviderID })
}

func (p *Processor) catalogSync(ctx context.Context, payload json.RawMessage, _ JobContext) (JobResult, error) {
	return p.providerSync(ctx, payload, "catalog", p.deps.CatalogSync, func(a *models.Artist) string { return a.CatalogProviderID })
}

func (p *Processor) setlistSync(ctx context.Context, payload json.RawMessage, _ JobContext) (JobResult, error) {
	return p.providerSync(ctx, payload, "setlist", p.deps.SetlistSync, func(a *models.Artist) string { return a.Name })
}

// syncData is the result data of a provider sync.
type syncData struct {
	ArtistID  string              `json:"artistId"`
	Synced    int                 `json:"synced"`
	Errors    int                 `json:"errors"`
	New       map[ingest.Kind]int `json:"new"`
	Truncated bool                `json:"truncated,omitempty"`
}

// providerSync re-runs one ingest for an existing artist and stamps its last
// sync time on success.
func (p *Processor) providerSync(ctx context.Context, payload json.RawMessage, name string, ing importer.Ingester, key func(*models.Artist) string) (JobResult, error) {
	in, err := decode[ProviderSyncPayload](payload)
	if err != nil {
		return JobResult{}, err
	}
	if ing == nil {
		return JobResult{}, fmt.Errorf("%s provider is not configured", name)
	}
	artist, err := p.deps.Store.GetArtist(ctx, in.ArtistID)
	if err != nil {
		return JobResult{}, fmt.Errorf("load artist %s: %w", in.ArtistID, err)
	}
	providerKey := in.ProviderExternalID
	if providerKey == "" {
		providerKey = key(artist)
	}
	if providerKey == "" {
		return JobResult{Success: true, Message: fmt.Sprintf("artist has no %s provider id", name)}, nil
	}

	sum, err := ing.Ingest(ctx, ingest.Request{
		OwnerEntityID: artist.ID,
		ProviderKey:   providerKey,
		Concurrency:   in.Config.concurrency(p.deps.Import.TrackConcurrency),
	})
	data := syncData{ArtistID: artist.ID, Synced: sum.Synced, Errors: sum.Errors, New: sum.New, Truncated: sum.Truncated}
	if err != nil {
		return JobResult{Data: data, Error: err.Error(), Message: fmt.Sprintf("%s sync aborted", name)}, nil
	}

	if artist.ImportStatus != models.ImportImporting {
		if serr := p.deps.Store.SetArtistLastSynced(ctx, artist.ID, p.now()); serr != nil {
			logging.Ctx(ctx).Warn().Err(serr).Str("artist_id", artist.ID).Msg("Failed to stamp last sync")
		}
	}
	return JobResult{
		Success: true,
		Data:    data,
		Message: fmt.Sprintf("%s sync: %d records, %d errors", name, sum.Synced, sum.Errors),
	}, nil
}

func (p *Processor) trending(ctx context.Context, payload json.RawMessage, _ JobContext) (JobResult, error) {
	in, err := decode[TrendingPayload](payload)
	if err != nil {
		return JobResult{}, err
	}
	if p.deps.Trending == nil {
		return JobResult{}, errors.New("trending is not configured")
	}

	res, err := p.deps.Trending.Calculate(ctx, trending.Options{EntityIDs: in.EntityIDs})
	out := JobResult{
		Success: err == nil,
		Data:    res,
		Message: fmt.Sprintf("updated %d artists, %d shows, %d songs", res.ArtistsUpdated, res.ShowsUpdated, res.SongsUpdated),
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out, nil
}

// cleanupData is the result data of a cleanup.
type cleanupData struct {
	Cutoff         time.Time `json:"cutoff"`
	ArtistsReset   int       `json:"artistsReset"`
	ProgressPruned int       `json:"progressPruned"`
	Failures       int       `json:"failures"`
}

// cleanup resets artists stuck in failed or importing before the cutoff to
// pending and prunes finished progress records older than the cutoff.
func (p *Processor) cleanup(ctx context.Context, payload json.RawMessage, _ JobContext) (JobResult, error) {
	in, err := decode[CleanupPayload](payload)
	if err != nil {
		return JobResult{}, err
	}
	days := in.OlderThanDays
	if days == 0 {
		days = p.deps.Import.CleanupAfterDays
	}
	if days <= 0 {
		days = 7
	}
	age := time.Duration(days) * 24 * time.Hour
	data := cleanupData{Cutoff: p.now().Add(-age)}
	var errs []error

	for _, status := range []models.ImportStatus{models.ImportFailed, models.ImportImporting} {
		artists, err := p.deps.Store.ListArtistsByStatus(ctx, status, data.Cutoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("list %s artists: %w", status, err))
			continue
		}
		for _, a := range artists {
			if err := p.deps.Store.SetArtistImportStatus(ctx, a.ID, models.ImportPending, nil); err != nil {
				data.Failures++
				errs = append(errs, fmt.Errorf("reset artist %s: %w", a.ID, err))
				continue
			}
			data.ArtistsReset++
		}
	}

	if p.deps.Tracker != nil {
		n, err := p.deps.Tracker.Prune(ctx, age)
		data.ProgressPruned = n
		if err != nil {
			errs = append(errs, fmt.Errorf("prune progress: %w", err))
		}
	}

	res := JobResult{
		Success: len(errs) == 0,
		Data:    data,
		Message: fmt.Sprintf("reset %d artists, pruned %d progress records", data.ArtistsReset, data.ProgressPruned),
	}
	if len(errs) > 0 {
		res.Error = errors.Join(errs...).Error()
	}
	return res, nil
}

// StuckImport is an artist that has been importing for too long.
type StuckImport struct {
	ArtistID  string    `json:"artistId"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// healthData is the result data of a health check.
type healthData struct {
	StuckImports []StuckImport               `json:"stuckImports"`
	Breakers     []resilience.BreakerMetrics `json:"breakers"`
	StoreError   string                      `json:"storeError,omitempty"`
}

// healthCheck reports imports stuck in importing for longer than the
// threshold, the breaker states and the store's reachability. Anything stuck
// or an unreachable store fails the check.
func (p *Processor) healthCheck(ctx context.Context, payload json.RawMessage, _ JobContext) (JobResult, error) {
	if _, err := decode[HealthCheckPayload](payload); err != nil {
		return JobResult{}, err
	}
	threshold := p.deps.Import.StuckAfter
	if threshold <= 0 {
		threshold = stuckImportThreshold
	}

	data := healthData{StuckImports: []StuckImport{}, Breakers: []resilience.BreakerMetrics{}}
	if pinger, ok := p.deps.Store.(Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			data.StoreError = err.Error()
		}
	}
	stuck, err := p.deps.Store.ListArtistsByStatus(ctx, models.ImportImporting, p.now().Add(-threshold))
	if err != nil {
		return JobResult{}, fmt.Errorf("list importing artists: %w", err)
	}
	for _, a := range stuck {
		data.StuckImports = append(data.StuckImports, StuckImport{ArtistID: a.ID, Name: a.Name, UpdatedAt: a.UpdatedAt})
	}
	if p.deps.Breakers != nil {
		data.Breakers = p.deps.Breakers.Snapshot()
	}

	res := JobResult{Success: len(stuck) == 0 && data.StoreError == "", Data: data}
	switch {
	case data.StoreError != "":
		res.Error = "store unreachable: " + data.StoreError
		res.Message = "unhealthy"
	case len(stuck) > 0:
		res.Error = fmt.Sprintf("%d imports stuck for more than %s", len(stuck), threshold)
		res.Message = "unhealthy"
	default:
		res.Message = "healthy"
	}
	return res, nil
}
