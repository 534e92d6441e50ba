// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/encore/internal/models"
)

// GetSetlistByExternalID implements store.SetlistStore.
func (db *DB) GetSetlistByExternalID(ctx context.Context, externalID string) (*models.Setlist, error) {
	var sl models.Setlist
	err := db.conn.QueryRowContext(ctx, `SELECT id, show_id, external_id, created_at
		FROM setlists WHERE external_id = ?`, externalID).
		Scan(&sl.ID, &sl.ShowID, &sl.ExternalID, &sl.CreatedAt)
	if err != nil {
		return nil, queryRowErr("setlist", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT song_id FROM setlist_songs WHERE setlist_id = ? ORDER BY position`, sl.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query setlist songs: %w", err)
	}
	defer closeQuietly(rows)
	for rows.Next() {
		var songID string
		if err := rows.Scan(&songID); err != nil {
			return nil, fmt.Errorf("failed to scan setlist song: %w", err)
		}
		sl.SongIDs = append(sl.SongIDs, songID)
	}
	return &sl, rows.Err()
}

// CreateSetlist implements store.SetlistStore. The setlist and its song
// positions are written in one transaction.
func (db *DB) CreateSetlist(ctx context.Context, sl *models.Setlist) error {
	if sl.ID == "" {
		sl.ID = uuid.New().String()
	}
	now := db.now().UTC()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO setlists (id, show_id, external_id, created_at)
		VALUES (?, ?, ?, ?)`, sl.ID, sl.ShowID, sl.ExternalID, now); err != nil {
		return insertErr("setlist", err)
	}
	for i, songID := range sl.SongIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO setlist_songs (setlist_id, position, song_id)
			VALUES (?, ?, ?)`, sl.ID, i, songID); err != nil {
			return insertErr("setlist song", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit setlist: %w", err)
	}
	sl.CreatedAt = now
	return nil
}
