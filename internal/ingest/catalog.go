// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/encore/internal/logging"
	"github.com/tomtom215/encore/internal/metrics"
	"github.com/tomtom215/encore/internal/models"
	"github.com/tomtom215/encore/internal/providers"
	"github.com/tomtom215/encore/internal/store"
)

// CatalogIngest pulls an artist's albums and tracks from the catalog provider.
type CatalogIngest struct {
	provider providers.CatalogProvider
	store    store.CatalogStore
}

// NewCatalogIngest creates a catalog ingest.
func NewCatalogIngest(provider providers.CatalogProvider, st store.CatalogStore) *CatalogIngest {
	return &CatalogIngest{provider: provider, store: st}
}

// Ingest authenticates, lists the albums of req.ProviderKey, then the tracks
// of each album. Album track listings run with up to req.Concurrency in
// flight; a failed listing counts as one album record error.
func (c *CatalogIngest) Ingest(ctx context.Context, req Request) (Summary, error) {
	start := time.Now()
	defer func() { metrics.IngestDuration.WithLabelValues(string(KindSong)).Observe(time.Since(start).Seconds()) }()

	sum := newSummary()
	if _, err := c.provider.Authenticate(ctx); err != nil {
		if errors.Is(err, providers.ErrQuotaExhausted) {
			sum.Truncated = true
			return sum, nil
		}
		return sum, fmt.Errorf("authenticate: %w", err)
	}

	albums, truncated, err := c.listAlbums(ctx, req.ProviderKey)
	sum.Truncated = truncated
	if err != nil {
		return sum, err
	}

	stored := make([]*models.Album, len(albums))
	albumStep := func(ctx context.Context, a indexedAlbum) (recordResult, error) {
		album, created, err := c.resolveAlbum(ctx, req.OwnerEntityID, a.CatalogAlbum)
		if err != nil {
			return recordResult{ExternalID: a.ID}, err
		}
		stored[a.index] = album
		res := recordResult{ExternalID: a.ID, Outcome: OutcomeExisting}
		if created {
			res.Outcome = OutcomeCreated
			res.Created = map[Kind]int{KindAlbum: 1}
		}
		return res, nil
	}
	indexed := make([]indexedAlbum, len(albums))
	for i, a := range albums {
		indexed[i] = indexedAlbum{CatalogAlbum: a, index: i}
	}
	sum, err = fold(ctx, sum, KindAlbum, indexed, func(a indexedAlbum) string { return a.ID }, albumStep)
	if err != nil {
		return sum, err
	}

	trackSums := make([]Summary, len(stored))
	trackErrs := make([]error, len(stored))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(req.Concurrency, 1))
	for i, album := range stored {
		if album == nil {
			continue
		}
		g.Go(func() error {
			trackSums[i], trackErrs[i] = c.ingestTracks(gctx, req.OwnerEntityID, album)
			return nil
		})
	}
	_ = g.Wait()

	for i, ts := range trackSums {
		sum = sum.Merge(ts)
		err := trackErrs[i]
		switch {
		case err == nil:
		case fatal(err):
			return sum, err
		default:
			sum.Errors++
			sum.Details = append(sum.Details, RecordDetail{Kind: KindAlbum, ExternalID: stored[i].ExternalID, Outcome: OutcomeFailed, Error: err.Error()})
		}
	}

	logging.Ctx(ctx).Info().
		Str("artist_id", req.OwnerEntityID).
		Int("new_albums", sum.NewAlbums()).
		Int("new_songs", sum.NewSongs()).
		Int("errors", sum.Errors).
		Bool("truncated", sum.Truncated).
		Msg("Catalog ingest finished")
	return sum, nil
}

type indexedAlbum struct {
	providers.CatalogAlbum
	index int
}

// listAlbums pages through the artist's albums up to the provider page cap.
func (c *CatalogIngest) listAlbums(ctx context.Context, artistID string) ([]providers.CatalogAlbum, bool, error) {
	_, maxPages := c.provider.PageLimits()
	var out []providers.CatalogAlbum
	offset := 0
	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		p, err := c.provider.ListAlbums(ctx, artistID, offset)
		if errors.Is(err, providers.ErrQuotaExhausted) {
			return out, true, nil
		}
		if err != nil {
			return out, false, fmt.Errorf("list albums at offset %d: %w", offset, err)
		}
		out = append(out, p.Items...)
		if !p.HasMore || len(p.Items) == 0 {
			break
		}
		offset += len(p.Items)
	}
	return out, false, nil
}

func (c *CatalogIngest) resolveAlbum(ctx context.Context, artistID string, a providers.CatalogAlbum) (*models.Album, bool, error) {
	if a.ID == "" {
		return nil, false, errors.New("album has no external id")
	}
	existing, err := c.store.GetAlbumByExternalID(ctx, a.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("look up album: %w", err)
	}

	album := &models.Album{ArtistID: artistID, Title: a.Title, ExternalID: a.ID, ReleaseDate: a.ReleaseDate}
	switch err := c.store.CreateAlbum(ctx, album); {
	case err == nil:
		return album, true, nil
	case errors.Is(err, store.ErrConflict):
		existing, err := c.store.GetAlbumByExternalID(ctx, a.ID)
		if err != nil {
			return nil, false, fmt.Errorf("re-read album after conflict: %w", err)
		}
		return existing, false, nil
	default:
		return nil, false, fmt.Errorf("create album: %w", err)
	}
}

// ingestTracks pages one album's tracks and folds them into songs.
func (c *CatalogIngest) ingestTracks(ctx context.Context, artistID string, album *models.Album) (Summary, error) {
	_, maxPages := c.provider.PageLimits()
	sum := newSummary()
	stepFn := func(ctx context.Context, t providers.CatalogTrack) (recordResult, error) {
		return c.ingestTrack(ctx, artistID, album.ID, t)
	}

	offset := 0
	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		p, err := c.provider.ListAlbumTracks(ctx, album.ExternalID, offset)
		if errors.Is(err, providers.ErrQuotaExhausted) {
			sum.Truncated = true
			return sum, nil
		}
		if err != nil {
			return sum, fmt.Errorf("list tracks of album %s: %w", album.ExternalID, err)
		}
		sum, err = fold(ctx, sum, KindSong, p.Items, func(t providers.CatalogTrack) string { return t.ID }, stepFn)
		if err != nil || sum.Truncated {
			return sum, err
		}
		if !p.HasMore || len(p.Items) == 0 {
			break
		}
		offset += len(p.Items)
	}
	return sum, nil
}

func (c *CatalogIngest) ingestTrack(ctx context.Context, artistID, albumID string, t providers.CatalogTrack) (recordResult, error) {
	res := recordResult{ExternalID: t.ID, Outcome: OutcomeExisting}
	if t.ID == "" || t.Title == "" {
		return res, errors.New("track has no external id or title")
	}

	_, err := c.store.GetSongByExternalID(ctx, t.ID)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return res, fmt.Errorf("look up song: %w", err)
	}

	song := &models.Song{
		ArtistID:   artistID,
		AlbumID:    albumID,
		Title:      t.Title,
		Slug:       models.Slugify(t.Title),
		ExternalID: t.ID,
		Popularity: t.Popularity,
		DurationMs: t.DurationMs,
	}
	switch err := c.store.CreateSong(ctx, song); {
	case errors.Is(err, store.ErrConflict):
		return res, nil
	case err != nil:
		return res, fmt.Errorf("create song: %w", err)
	}
	res.Outcome = OutcomeCreated
	res.Created = map[Kind]int{KindSong: 1}
	return res, nil
}
