// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package models

import "time"

// ImportStatus tracks an artist's position in the import lifecycle.
type ImportStatus string

const (
	ImportPending   ImportStatus = "pending"
	ImportImporting ImportStatus = "importing"
	ImportCompleted ImportStatus = "completed"
	ImportFailed    ImportStatus = "failed"
)

// EntityKind names the canonical entity tables that carry trending scores.
type EntityKind string

const (
	KindArtist EntityKind = "artist"
	KindShow   EntityKind = "show"
	KindSong   EntityKind = "song"
)

// Artist is the canonical performer record. Provider ids link it to the
// show, catalog and setlist providers; any of them may be empty.
type Artist struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Slug              string       `json:"slug"`
	ShowProviderID    string       `json:"show_provider_id,omitempty"`
	CatalogProviderID string       `json:"catalog_provider_id,omitempty"`
	SetlistProviderID string       `json:"setlist_provider_id,omitempty"`
	ImageURL          string       `json:"image_url,omitempty"`
	Genres            []string     `json:"genres,omitempty"`
	Popularity        int          `json:"popularity"`
	Followers         int64        `json:"followers"`
	ImportStatus      ImportStatus `json:"import_status"`
	LastSyncedAt      *time.Time   `json:"last_synced_at,omitempty"`
	TrendingScore     float64      `json:"trending_score"`
	TrendingUpdatedAt *time.Time   `json:"trending_updated_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Venue is a physical location hosting shows. Name plus City identifies a
// venue when the provider id is unknown.
type Venue struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	City       string    `json:"city"`
	State      string    `json:"state,omitempty"`
	Country    string    `json:"country,omitempty"`
	ExternalID string    `json:"external_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Show is a dated performance by an artist at a venue.
type Show struct {
	ID            string     `json:"id"`
	ArtistID      string     `json:"artist_id"`
	VenueID       string     `json:"venue_id"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug"`
	Date          time.Time  `json:"date"`
	Status        string     `json:"status"` // upcoming, completed, cancelled
	ExternalID    string     `json:"external_id"`
	TicketURL     string     `json:"ticket_url,omitempty"`
	TrendingScore float64    `json:"trending_score"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Album is a catalog release.
type Album struct {
	ID          string    `json:"id"`
	ArtistID    string    `json:"artist_id"`
	Title       string    `json:"title"`
	ExternalID  string    `json:"external_id"`
	ReleaseDate string    `json:"release_date,omitempty"` // Provider precision varies: YYYY, YYYY-MM or YYYY-MM-DD
	CreatedAt   time.Time `json:"created_at"`
}

// Song is a catalog track. Songs created from setlists have no ExternalID.
type Song struct {
	ID                string     `json:"id"`
	ArtistID          string     `json:"artist_id"`
	AlbumID           string     `json:"album_id,omitempty"`
	Title             string     `json:"title"`
	Slug              string     `json:"slug"`
	ExternalID        string     `json:"external_id,omitempty"`
	Popularity        int        `json:"popularity"`
	DurationMs        int        `json:"duration_ms"`
	TrendingScore     float64    `json:"trending_score"`
	TrendingUpdatedAt *time.Time `json:"trending_updated_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Setlist is the ordered song list performed at a show.
type Setlist struct {
	ID         string    `json:"id"`
	ShowID     string    `json:"show_id"`
	ExternalID string    `json:"external_id"`
	SongIDs    []string  `json:"song_ids"`
	CreatedAt  time.Time `json:"created_at"`
}
