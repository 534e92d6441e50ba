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

	"github.com/tomtom215/encore/internal/logging"
	"github.com/tomtom215/encore/internal/metrics"
	"github.com/tomtom215/encore/internal/models"
	"github.com/tomtom215/encore/internal/providers"
	"github.com/tomtom215/encore/internal/store"
)

// SetlistStores is the storage the setlist ingest reads and writes.
type SetlistStores interface {
	store.ShowStore
	store.CatalogStore
	store.SetlistStore
}

// SetlistIngest attaches setlists to an artist's past shows.
type SetlistIngest struct {
	provider providers.SetlistProvider
	store    SetlistStores
	limit    int
	now      func() time.Time
}

// NewSetlistIngest creates a setlist ingest handling at most limit shows per run.
func NewSetlistIngest(provider providers.SetlistProvider, st SetlistStores, limit int) *SetlistIngest {
	if limit <= 0 {
		limit = 20
	}
	return &SetlistIngest{provider: provider, store: st, limit: limit, now: time.Now}
}

// Ingest searches a setlist for each past show of req.OwnerEntityID that has
// none, by artist name (req.ProviderKey), venue and date. The first match is
// stored; its song titles resolve to the artist's songs, created when unknown.
func (s *SetlistIngest) Ingest(ctx context.Context, req Request) (Summary, error) {
	start := time.Now()
	defer func() { metrics.IngestDuration.WithLabelValues(string(KindSetlist)).Observe(time.Since(start).Seconds()) }()

	sum := newSummary()
	shows, err := s.store.ListPastShowsWithoutSetlist(ctx, req.OwnerEntityID, s.now(), s.limit)
	if err != nil {
		return sum, fmt.Errorf("list past shows: %w", err)
	}

	sum, err = fold(ctx, sum, KindSetlist, shows, func(sh models.Show) string { return sh.ExternalID },
		func(ctx context.Context, sh models.Show) (recordResult, error) {
			return s.ingestShow(ctx, req.OwnerEntityID, req.ProviderKey, sh)
		})

	logging.Ctx(ctx).Info().
		Str("artist_id", req.OwnerEntityID).
		Int("shows", len(shows)).
		Int("new_setlists", sum.NewSetlists()).
		Int("errors", sum.Errors).
		Bool("truncated", sum.Truncated).
		Msg("Setlist ingest finished")
	return sum, err
}

func (s *SetlistIngest) ingestShow(ctx context.Context, artistID, artistName string, sh models.Show) (recordResult, error) {
	res := recordResult{ExternalID: sh.ExternalID, Outcome: OutcomeSkipped}

	q := providers.SetlistQuery{ArtistName: artistName, Date: sh.Date}
	if sh.VenueID != "" {
		v, err := s.store.GetVenue(ctx, sh.VenueID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return res, fmt.Errorf("look up venue: %w", err)
		}
		if v != nil {
			q.VenueName, q.City = v.Name, v.City
		}
	}

	matches, err := s.provider.SearchSetlists(ctx, q)
	if err != nil {
		return res, err
	}
	if len(matches) == 0 {
		return res, nil
	}
	m := matches[0]
	res.ExternalID = m.ID

	if _, err := s.store.GetSetlistByExternalID(ctx, m.ID); err == nil {
		res.Outcome = OutcomeExisting
		return res, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return res, fmt.Errorf("look up setlist: %w", err)
	}

	res.Created = make(map[Kind]int)
	songIDs := make([]string, 0, len(m.Songs))
	for _, title := range m.Songs {
		id, created, err := s.resolveSong(ctx, artistID, title)
		if err != nil {
			return res, err
		}
		if created {
			res.Created[KindSong]++
		}
		songIDs = append(songIDs, id)
	}

	sl := &models.Setlist{ShowID: sh.ID, ExternalID: m.ID, SongIDs: songIDs}
	switch err := s.store.CreateSetlist(ctx, sl); {
	case errors.Is(err, store.ErrConflict):
		res.Outcome = OutcomeExisting
		return res, nil
	case err != nil:
		return res, fmt.Errorf("create setlist: %w", err)
	}
	res.Outcome = OutcomeCreated
	res.Created[KindSetlist]++
	return res, nil
}

// resolveSong finds the artist's song by title, creating it when unknown.
func (s *SetlistIngest) resolveSong(ctx context.Context, artistID, title string) (string, bool, error) {
	song, err := s.store.FindSongByTitle(ctx, artistID, title)
	if err == nil {
		return song.ID, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", false, fmt.Errorf("find song: %w", err)
	}
	song = &models.Song{ArtistID: artistID, Title: title, Slug: models.Slugify(title)}
	if err := s.store.CreateSong(ctx, song); err != nil {
		return "", false, fmt.Errorf("create song %q: %w", title, err)
	}
	return song.ID, true, nil
}
