// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tomtom215/encore/internal/models"
	"github.com/tomtom215/encore/internal/store"
)

// GetAlbumByExternalID implements store.CatalogStore.
func (db *DB) GetAlbumByExternalID(ctx context.Context, externalID string) (*models.Album, error) {
	var (
		a       models.Album
		release sql.NullString
	)
	err := db.conn.QueryRowContext(ctx, `SELECT id, artist_id, title, external_id, release_date, created_at
		FROM albums WHERE external_id = ?`, externalID).
		Scan(&a.ID, &a.ArtistID, &a.Title, &a.ExternalID, &release, &a.CreatedAt)
	if err != nil {
		return nil, queryRowErr("album", err)
	}
	a.ReleaseDate = release.String
	return &a, nil
}

// CreateAlbum implements store.CatalogStore.
func (db *DB) CreateAlbum(ctx context.Context, a *models.Album) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := db.now().UTC()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO albums (id, artist_id, title, external_id, release_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.ArtistID, a.Title, a.ExternalID, nullString(a.ReleaseDate), now)
	if err != nil {
		return insertErr("album", err)
	}
	a.CreatedAt = now
	return nil
}

const songColumns = `id, artist_id, album_id, title, slug, external_id, popularity, duration_ms, trending_score, trending_updated_at, created_at`

func scanSong(row rowScanner) (*models.Song, error) {
	var (
		s              models.Song
		albumID, extID sql.NullString
		trendingAt     sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.ArtistID, &albumID, &s.Title, &s.Slug, &extID,
		&s.Popularity, &s.DurationMs, &s.TrendingScore, &trendingAt, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.AlbumID, s.ExternalID = albumID.String, extID.String
	s.TrendingUpdatedAt = timePtr(trendingAt)
	return &s, nil
}

// GetSongByExternalID implements store.CatalogStore.
func (db *DB) GetSongByExternalID(ctx context.Context, externalID string) (*models.Song, error) {
	if externalID == "" {
		return nil, fmt.Errorf("song: %w", store.ErrNotFound)
	}
	s, err := scanSong(db.conn.QueryRowContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE external_id = ?`, externalID))
	if err != nil {
		return nil, queryRowErr("song", err)
	}
	return s, nil
}

// FindSongByTitle implements store.CatalogStore. Matching ignores case.
func (db *DB) FindSongByTitle(ctx context.Context, artistID, title string) (*models.Song, error) {
	s, err := scanSong(db.conn.QueryRowContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE artist_id = ? AND lower(trim(title)) = ?
		ORDER BY created_at LIMIT 1`,
		artistID, strings.ToLower(strings.TrimSpace(title))))
	if err != nil {
		return nil, queryRowErr("song", err)
	}
	return s, nil
}

// CreateSong implements store.CatalogStore.
func (db *DB) CreateSong(ctx context.Context, s *models.Song) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Slug == "" {
		s.Slug = models.Slugify(s.Title)
	}
	now := db.now().UTC()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO songs (`+songColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ArtistID, nullString(s.AlbumID), s.Title, s.Slug, nullString(s.ExternalID),
		s.Popularity, s.DurationMs, s.TrendingScore, nullTime(s.TrendingUpdatedAt), now)
	if err != nil {
		return insertErr("song", err)
	}
	s.CreatedAt = now
	return nil
}
