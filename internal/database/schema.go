// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package database

import (
	"context"
	"fmt"
)

// schema is applied on every start; statements are idempotent.
//
// Nullable provider ids are stored as NULL when unknown so UNIQUE allows
// many artists without, say, a catalog match. Venues are unique on a
// normalized name|city key.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS artists (
		id VARCHAR PRIMARY KEY,
		name VARCHAR NOT NULL,
		slug VARCHAR NOT NULL UNIQUE,
		show_provider_id VARCHAR UNIQUE,
		catalog_provider_id VARCHAR,
		setlist_provider_id VARCHAR,
		image_url VARCHAR,
		genres VARCHAR,
		popularity INTEGER DEFAULT 0,
		followers BIGINT DEFAULT 0,
		import_status VARCHAR NOT NULL DEFAULT 'pending',
		last_synced_at TIMESTAMP,
		trending_score DOUBLE DEFAULT 0,
		trending_updated_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS venues (
		id VARCHAR PRIMARY KEY,
		name VARCHAR NOT NULL,
		name_key VARCHAR NOT NULL UNIQUE,
		slug VARCHAR NOT NULL,
		city VARCHAR,
		state VARCHAR,
		country VARCHAR,
		external_id VARCHAR,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shows (
		id VARCHAR PRIMARY KEY,
		artist_id VARCHAR NOT NULL,
		venue_id VARCHAR,
		name VARCHAR,
		slug VARCHAR NOT NULL,
		date TIMESTAMP NOT NULL,
		status VARCHAR NOT NULL DEFAULT 'upcoming',
		external_id VARCHAR NOT NULL UNIQUE,
		ticket_url VARCHAR,
		trending_score DOUBLE DEFAULT 0,
		updated_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_shows_artist_date ON shows(artist_id, date)`,
	`CREATE TABLE IF NOT EXISTS albums (
		id VARCHAR PRIMARY KEY,
		artist_id VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		external_id VARCHAR NOT NULL UNIQUE,
		release_date VARCHAR,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS songs (
		id VARCHAR PRIMARY KEY,
		artist_id VARCHAR NOT NULL,
		album_id VARCHAR,
		title VARCHAR NOT NULL,
		slug VARCHAR NOT NULL,
		external_id VARCHAR UNIQUE,
		popularity INTEGER DEFAULT 0,
		duration_ms INTEGER DEFAULT 0,
		trending_score DOUBLE DEFAULT 0,
		trending_updated_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	)`,
	`ALTER TABLE songs ADD COLUMN IF NOT EXISTS trending_updated_at TIMESTAMP`,
	`CREATE INDEX IF NOT EXISTS idx_songs_artist ON songs(artist_id)`,
	`CREATE TABLE IF NOT EXISTS setlists (
		id VARCHAR PRIMARY KEY,
		show_id VARCHAR NOT NULL UNIQUE,
		external_id VARCHAR NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS setlist_songs (
		setlist_id VARCHAR NOT NULL,
		position INTEGER NOT NULL,
		song_id VARCHAR NOT NULL,
		PRIMARY KEY (setlist_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		id VARCHAR PRIMARY KEY,
		show_id VARCHAR NOT NULL,
		song_id VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_show ON votes(show_id)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_song ON votes(song_id)`,
}

func (db *DB) createSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
