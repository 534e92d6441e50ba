// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

// Package store defines the storage collaborator the ingestion engine writes
// through. The wider application owns the schema; this package only fixes the
// operations the engine needs.
//
// Two adapters exist: Memory in this package, and the DuckDB adapter in
// internal/database.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/encore/internal/models"
)

var (
	// ErrNotFound is returned when a lookup finds no record.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when an insert collides with an existing unique key.
	ErrConflict = errors.New("record already exists")
)

// ArtistStore reads and writes artists.
type ArtistStore interface {
	GetArtist(ctx context.Context, id string) (*models.Artist, error)
	GetArtistByShowProviderID(ctx context.Context, providerID string) (*models.Artist, error)
	CreateArtist(ctx context.Context, a *models.Artist) error
	UpdateArtistProfile(ctx context.Context, a *models.Artist) error
	SetArtistImportStatus(ctx context.Context, id string, status models.ImportStatus, syncedAt *time.Time) error
	// SetArtistLastSynced stamps a routine sync. It leaves the import status
	// and the update stamp that cleanup and health checks age by untouched.
	SetArtistLastSynced(ctx context.Context, id string, at time.Time) error
	// ListArtistsForSync returns completed-or-pending artists whose last sync
	// is older than staleBefore (or never happened), oldest first.
	ListArtistsForSync(ctx context.Context, staleBefore time.Time, limit int) ([]models.Artist, error)
	// ListArtistsByStatus returns artists in status last updated before updatedBefore.
	ListArtistsByStatus(ctx context.Context, status models.ImportStatus, updatedBefore time.Time) ([]models.Artist, error)
}

// VenueStore reads and writes venues.
type VenueStore interface {
	FindVenue(ctx context.Context, name, city string) (*models.Venue, error)
	CreateVenue(ctx context.Context, v *models.Venue) error
}

// ShowStore reads and writes shows.
type ShowStore interface {
	GetShowByExternalID(ctx context.Context, externalID string) (*models.Show, error)
	CreateShow(ctx context.Context, s *models.Show) error
	// ListPastShowsWithoutSetlist returns the artist's shows dated before
	// `before` that have no setlist, most recent first.
	ListPastShowsWithoutSetlist(ctx context.Context, artistID string, before time.Time, limit int) ([]models.Show, error)
	GetVenue(ctx context.Context, id string) (*models.Venue, error)
}

// CatalogStore reads and writes albums and songs.
type CatalogStore interface {
	GetAlbumByExternalID(ctx context.Context, externalID string) (*models.Album, error)
	CreateAlbum(ctx context.Context, a *models.Album) error
	GetSongByExternalID(ctx context.Context, externalID string) (*models.Song, error)
	FindSongByTitle(ctx context.Context, artistID, title string) (*models.Song, error)
	CreateSong(ctx context.Context, s *models.Song) error
}

// SetlistStore reads and writes setlists.
type SetlistStore interface {
	GetSetlistByExternalID(ctx context.Context, externalID string) (*models.Setlist, error)
	CreateSetlist(ctx context.Context, s *models.Setlist) error
}

// TrendingStore supplies trending aggregates and accepts score writes.
// A nil or empty ids slice means every eligible entity: all artists, upcoming
// shows and all songs.
type TrendingStore interface {
	ArtistTrendingInputs(ctx context.Context, ids []string, w models.TrendingWindows) ([]models.ArtistTrendingInputs, error)
	ShowTrendingInputs(ctx context.Context, ids []string, w models.TrendingWindows) ([]models.ShowTrendingInputs, error)
	SongTrendingInputs(ctx context.Context, ids []string, w models.TrendingWindows) ([]models.SongTrendingInputs, error)
	UpdateTrendingScore(ctx context.Context, kind models.EntityKind, id string, score float64, at time.Time) error
}

// Store is the full collaborator.
type Store interface {
	ArtistStore
	VenueStore
	ShowStore
	CatalogStore
	SetlistStore
	TrendingStore
	Ping(ctx context.Context) error
	Close() error
}
