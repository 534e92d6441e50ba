// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package importer

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/encore/internal/logging"
)

// MaxBatchConcurrency caps concurrent imports in a batch.
const MaxBatchConcurrency = 50

// BatchResult is one attraction's outcome in a batch.
type BatchResult struct {
	AttractionID string `json:"attractionId"`
	ArtistID     string `json:"artistId,omitempty"`
	Created      bool   `json:"created"`
	Success      bool   `json:"success"`
	Stats        Stats  `json:"stats"`
	Error        string `json:"error,omitempty"`
}

// RunBatchImport initiates and fully imports every attraction id. Results are
// in input order, one per id; a failure or panic stays in its own slot.
func (o *Orchestrator) RunBatchImport(ctx context.Context, attractionIDs []string) []BatchResult {
	return o.RunBatchImportWithLimit(ctx, attractionIDs, o.cfg.BatchConcurrency)
}

// RunBatchImportWithLimit is RunBatchImport with an explicit concurrency,
// clamped to MaxBatchConcurrency.
func (o *Orchestrator) RunBatchImportWithLimit(ctx context.Context, attractionIDs []string, limit int) []BatchResult {
	results := make([]BatchResult, len(attractionIDs))
	if limit <= 0 || limit > MaxBatchConcurrency {
		limit = MaxBatchConcurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range attractionIDs {
		g.Go(func() error {
			results[i] = o.importOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	logging.Ctx(ctx).Info().
		Int("total", len(results)).
		Int("failed", failed).
		Int("concurrency", limit).
		Msg("Batch import finished")
	return results
}

func (o *Orchestrator) importOne(ctx context.Context, attractionID string) (res BatchResult) {
	res.AttractionID = attractionID
	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().
				Str("attraction_id", attractionID).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Import panicked")
			res.Success = false
			res.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}
	h, err := o.InitiateImport(ctx, attractionID)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.ArtistID, res.Created = h.ArtistID, h.Created

	full := o.RunFullImport(ctx, h.ArtistID)
	res.Success, res.Stats, res.Error = full.Success, full.Stats, full.Error
	return res
}
