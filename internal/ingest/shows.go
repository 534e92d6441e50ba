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

// ShowStores is the storage the show ingest writes through.
type ShowStores interface {
	store.VenueStore
	store.ShowStore
}

// ShowIngest pulls an artist's events from the show provider.
type ShowIngest struct {
	provider providers.ShowProvider
	store    ShowStores
}

// NewShowIngest creates a show ingest.
func NewShowIngest(provider providers.ShowProvider, st ShowStores) *ShowIngest {
	return &ShowIngest{provider: provider, store: st}
}

// Ingest pages through the events of req.ProviderKey and stores each as a
// show of req.OwnerEntityID.
func (s *ShowIngest) Ingest(ctx context.Context, req Request) (Summary, error) {
	start := time.Now()
	defer func() { metrics.IngestDuration.WithLabelValues(string(KindShow)).Observe(time.Since(start).Seconds()) }()

	_, maxPages := s.provider.PageLimits()
	sum := newSummary()
	stepFn := func(ctx context.Context, e providers.Event) (recordResult, error) {
		return s.ingestEvent(ctx, req.OwnerEntityID, e)
	}

	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		p, err := s.provider.ListEvents(ctx, req.ProviderKey, page)
		if errors.Is(err, providers.ErrQuotaExhausted) {
			sum.Truncated = true
			break
		}
		if err != nil {
			return sum, fmt.Errorf("list events page %d: %w", page, err)
		}

		sum, err = fold(ctx, sum, KindShow, p.Events, func(e providers.Event) string { return e.ID }, stepFn)
		if err != nil {
			return sum, err
		}
		if page+1 >= p.TotalPages {
			break
		}
	}

	logging.Ctx(ctx).Info().
		Str("artist_id", req.OwnerEntityID).
		Int("synced", sum.Synced).
		Int("new_shows", sum.NewShows()).
		Int("new_venues", sum.NewVenues()).
		Int("errors", sum.Errors).
		Bool("truncated", sum.Truncated).
		Msg("Show ingest finished")
	return sum, nil
}

func (s *ShowIngest) ingestEvent(ctx context.Context, artistID string, e providers.Event) (recordResult, error) {
	res := recordResult{ExternalID: e.ID, Outcome: OutcomeExisting}
	if e.ID == "" {
		return res, errors.New("event has no external id")
	}
	if e.Date.IsZero() {
		return res, errors.New("event has no date")
	}

	_, err := s.store.GetShowByExternalID(ctx, e.ID)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return res, fmt.Errorf("look up show: %w", err)
	}

	res.Created = make(map[Kind]int)
	var venueID string
	if e.Venue != nil && e.Venue.Name != "" {
		v, created, err := resolveVenue(ctx, s.store, e.Venue)
		if err != nil {
			return res, err
		}
		venueID = v.ID
		if created {
			res.Created[KindVenue]++
		}
	}

	show := &models.Show{
		ArtistID:   artistID,
		VenueID:    venueID,
		Name:       e.Name,
		Slug:       models.ShowSlug(e.Name, e.Date),
		Date:       e.Date,
		Status:     e.Status,
		ExternalID: e.ID,
		TicketURL:  e.TicketURL,
	}
	switch err := s.store.CreateShow(ctx, show); {
	case errors.Is(err, store.ErrConflict):
		// Another ingest won the race; the venue it may have created is still ours.
		return res, nil
	case err != nil:
		return res, fmt.Errorf("create show: %w", err)
	}
	res.Outcome = OutcomeCreated
	res.Created[KindShow]++
	return res, nil
}

// resolveVenue finds the venue by name and city, creating it if absent. An
// insert conflict means a concurrent writer created it first.
func resolveVenue(ctx context.Context, st store.VenueStore, ev *providers.EventVenue) (*models.Venue, bool, error) {
	v, err := st.FindVenue(ctx, ev.Name, ev.City)
	if err == nil {
		return v, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("find venue: %w", err)
	}

	v = &models.Venue{
		Name:       ev.Name,
		Slug:       models.Slugify(ev.Name),
		City:       ev.City,
		State:      ev.State,
		Country:    ev.Country,
		ExternalID: ev.ID,
	}
	switch err := st.CreateVenue(ctx, v); {
	case err == nil:
		return v, true, nil
	case errors.Is(err, store.ErrConflict):
		existing, err := st.FindVenue(ctx, ev.Name, ev.City)
		if err != nil {
			return nil, false, fmt.Errorf("re-read venue after conflict: %w", err)
		}
		return existing, false, nil
	default:
		return nil, false, fmt.Errorf("create venue: %w", err)
	}
}
