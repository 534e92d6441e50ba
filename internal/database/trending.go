// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/encore/internal/models"
	"github.com/tomtom215/encore/internal/store"
)

// ArtistTrendingInputs implements store.TrendingStore.
func (db *DB) ArtistTrendingInputs(ctx context.Context, ids []string, w models.TrendingWindows) ([]models.ArtistTrendingInputs, error) {
	filter, filterArgs := inClause("a.id", ids)
	now := w.Now.UTC()
	query := `
		WITH vote_counts AS (
			SELECT s.artist_id,
				COUNT(*) AS total,
				COUNT(*) FILTER (WHERE v.created_at > ?) AS recent,
				COUNT(*) FILTER (WHERE v.created_at > ?) AS week
			FROM votes v JOIN shows s ON s.id = v.show_id
			GROUP BY s.artist_id
		), upcoming AS (
			SELECT artist_id, COUNT(*) AS n FROM shows
			WHERE date >= ? AND status <> 'cancelled'
			GROUP BY artist_id
		)
		SELECT a.id,
			COALESCE(vc.total, 0), COALESCE(vc.recent, 0), COALESCE(vc.week, 0),
			COALESCE(u.n, 0), a.followers
		FROM artists a
		LEFT JOIN vote_counts vc ON vc.artist_id = a.id
		LEFT JOIN upcoming u ON u.artist_id = a.id
		WHERE 1 = 1` + filter + `
		ORDER BY a.id`
	args := append([]any{w.RecentSince().UTC(), w.WeekSince().UTC(), now}, filterArgs...)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artist trending inputs: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.ArtistTrendingInputs
	for rows.Next() {
		var in models.ArtistTrendingInputs
		if err := rows.Scan(&in.ArtistID, &in.TotalVotes, &in.RecentVotes, &in.WeekVotes,
			&in.UpcomingShows, &in.Followers); err != nil {
			return nil, fmt.Errorf("failed to scan artist trending inputs: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// ShowTrendingInputs implements store.TrendingStore. Without ids only shows
// dated today (UTC) or later are returned.
func (db *DB) ShowTrendingInputs(ctx context.Context, ids []string, w models.TrendingWindows) ([]models.ShowTrendingInputs, error) {
	filter, filterArgs := inClause("s.id", ids)
	args := []any{w.RecentSince().UTC()}
	if len(ids) == 0 {
		filter = " AND s.date >= ?"
		filterArgs = []any{w.Now.UTC().Truncate(24 * time.Hour)}
	}
	args = append(args, filterArgs...)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT s.id, COUNT(v.id), COUNT(v.id) FILTER (WHERE v.created_at > ?), s.date
		FROM shows s LEFT JOIN votes v ON v.show_id = s.id
		WHERE 1 = 1`+filter+`
		GROUP BY s.id, s.date
		ORDER BY s.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query show trending inputs: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.ShowTrendingInputs
	for rows.Next() {
		var in models.ShowTrendingInputs
		if err := rows.Scan(&in.ShowID, &in.VoteCount, &in.RecentVotes, &in.Date); err != nil {
			return nil, fmt.Errorf("failed to scan show trending inputs: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// SongTrendingInputs implements store.TrendingStore.
func (db *DB) SongTrendingInputs(ctx context.Context, ids []string, w models.TrendingWindows) ([]models.SongTrendingInputs, error) {
	filter, filterArgs := inClause("s.id", ids)
	args := append([]any{w.RecentSince().UTC(), w.WeekSince().UTC()}, filterArgs...)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT s.id, s.popularity, COUNT(v.id),
			COUNT(v.id) FILTER (WHERE v.created_at > ?),
			COUNT(v.id) FILTER (WHERE v.created_at > ?)
		FROM songs s LEFT JOIN votes v ON v.song_id = s.id
		WHERE 1 = 1`+filter+`
		GROUP BY s.id, s.popularity
		ORDER BY s.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query song trending inputs: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.SongTrendingInputs
	for rows.Next() {
		var in models.SongTrendingInputs
		if err := rows.Scan(&in.SongID, &in.Popularity, &in.VoteCount, &in.RecentVotes, &in.WeekVotes); err != nil {
			return nil, fmt.Errorf("failed to scan song trending inputs: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// UpdateTrendingScore implements store.TrendingStore.
func (db *DB) UpdateTrendingScore(ctx context.Context, kind models.EntityKind, id string, score float64, at time.Time) error {
	var query string
	switch kind {
	case models.KindArtist:
		query = `UPDATE artists SET trending_score = ?, trending_updated_at = ? WHERE id = ?`
	case models.KindShow:
		query = `UPDATE shows SET trending_score = ?, updated_at = ? WHERE id = ?`
	case models.KindSong:
		query = `UPDATE songs SET trending_score = ?, trending_updated_at = ? WHERE id = ?`
	default:
		return fmt.Errorf("unknown entity kind %q: %w", kind, store.ErrNotFound)
	}
	res, err := db.conn.ExecContext(ctx, query, score, at.UTC(), id)
	return checkAffected(string(kind), res, err)
}

// RecordVote inserts a vote. Votes are owned by the wider application; this
// exists so aggregates can be exercised end to end.
func (db *DB) RecordVote(ctx context.Context, v store.Vote) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO votes (id, show_id, song_id, created_at) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), v.ShowID, v.SongID, v.At.UTC())
	if err != nil {
		return insertErr("vote", err)
	}
	return nil
}
