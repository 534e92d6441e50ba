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
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/encore/internal/models"
	"github.com/tomtom215/encore/internal/store"
)

const artistColumns = `id, name, slug, show_provider_id, catalog_provider_id, setlist_provider_id,
	image_url, genres, popularity, followers, import_status, last_synced_at,
	trending_score, trending_updated_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtist(row rowScanner) (*models.Artist, error) {
	var (
		a                                     models.Artist
		showID, catalogID, setlistID, img, gs sql.NullString
		status                                string
		synced, trendingAt                    sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Slug, &showID, &catalogID, &setlistID,
		&img, &gs, &a.Popularity, &a.Followers, &status, &synced,
		&a.TrendingScore, &trendingAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.ShowProviderID = showID.String
	a.CatalogProviderID = catalogID.String
	a.SetlistProviderID = setlistID.String
	a.ImageURL = img.String
	if gs.String != "" {
		a.Genres = strings.Split(gs.String, ",")
	}
	a.ImportStatus = models.ImportStatus(status)
	a.LastSyncedAt = timePtr(synced)
	a.TrendingUpdatedAt = timePtr(trendingAt)
	return &a, nil
}

func (db *DB) queryArtists(ctx context.Context, query string, args ...any) ([]models.Artist, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// GetArtist implements store.ArtistStore.
func (db *DB) GetArtist(ctx context.Context, id string) (*models.Artist, error) {
	a, err := scanArtist(db.conn.QueryRowContext(ctx,
		`SELECT `+artistColumns+` FROM artists WHERE id = ?`, id))
	if err != nil {
		return nil, queryRowErr("artist", err)
	}
	return a, nil
}

// GetArtistByShowProviderID implements store.ArtistStore.
func (db *DB) GetArtistByShowProviderID(ctx context.Context, providerID string) (*models.Artist, error) {
	a, err := scanArtist(db.conn.QueryRowContext(ctx,
		`SELECT `+artistColumns+` FROM artists WHERE show_provider_id = ?`, providerID))
	if err != nil {
		return nil, queryRowErr("artist", err)
	}
	return a, nil
}

// CreateArtist implements store.ArtistStore.
func (db *DB) CreateArtist(ctx context.Context, a *models.Artist) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.ImportStatus == "" {
		a.ImportStatus = models.ImportPending
	}
	now := db.now().UTC()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO artists (`+artistColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Slug, nullString(a.ShowProviderID), nullString(a.CatalogProviderID),
		nullString(a.SetlistProviderID), nullString(a.ImageURL), strings.Join(a.Genres, ","),
		a.Popularity, a.Followers, string(a.ImportStatus), nullTime(a.LastSyncedAt),
		a.TrendingScore, nullTime(a.TrendingUpdatedAt), now, now)
	if err != nil {
		return insertErr("artist", err)
	}
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

// UpdateArtistProfile implements store.ArtistStore.
func (db *DB) UpdateArtistProfile(ctx context.Context, a *models.Artist) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE artists SET
		catalog_provider_id = ?, setlist_provider_id = ?, image_url = ?, genres = ?,
		popularity = ?, followers = ?, updated_at = ?
		WHERE id = ?`,
		nullString(a.CatalogProviderID), nullString(a.SetlistProviderID), nullString(a.ImageURL),
		strings.Join(a.Genres, ","), a.Popularity, a.Followers, db.now().UTC(), a.ID)
	return checkAffected("artist", res, err)
}

// SetArtistImportStatus implements store.ArtistStore. A nil syncedAt keeps the previous value.
func (db *DB) SetArtistImportStatus(ctx context.Context, id string, status models.ImportStatus, syncedAt *time.Time) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE artists SET
		import_status = ?, last_synced_at = COALESCE(?, last_synced_at), updated_at = ?
		WHERE id = ?`,
		string(status), nullTime(syncedAt), db.now().UTC(), id)
	return checkAffected("artist", res, err)
}

// SetArtistLastSynced implements store.ArtistStore.
func (db *DB) SetArtistLastSynced(ctx context.Context, id string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE artists SET last_synced_at = ? WHERE id = ?`, at.UTC(), id)
	return checkAffected("artist", res, err)
}

// ListArtistsForSync implements store.ArtistStore.
func (db *DB) ListArtistsForSync(ctx context.Context, staleBefore time.Time, limit int) ([]models.Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists
		WHERE import_status <> ? AND (last_synced_at IS NULL OR last_synced_at < ?)
		ORDER BY last_synced_at ASC NULLS FIRST, name ASC`
	args := []any{string(models.ImportImporting), staleBefore.UTC()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return db.queryArtists(ctx, query, args...)
}

// ListArtistsByStatus implements store.ArtistStore.
func (db *DB) ListArtistsByStatus(ctx context.Context, status models.ImportStatus, updatedBefore time.Time) ([]models.Artist, error) {
	return db.queryArtists(ctx, `SELECT `+artistColumns+` FROM artists
		WHERE import_status = ? AND updated_at < ?
		ORDER BY updated_at ASC`, string(status), updatedBefore.UTC())
}

func checkAffected(entity string, res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for %s: %w", entity, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, store.ErrNotFound)
	}
	return nil
}
