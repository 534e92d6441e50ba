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
)

func venueKey(name, city string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToLower(strings.TrimSpace(city))
}

func scanVenue(row rowScanner) (*models.Venue, error) {
	var (
		v                            models.Venue
		city, state, country, extID sql.NullString
	)
	if err := row.Scan(&v.ID, &v.Name, &v.Slug, &city, &state, &country, &extID, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.City, v.State, v.Country, v.ExternalID = city.String, state.String, country.String, extID.String
	return &v, nil
}

const venueColumns = `id, name, slug, city, state, country, external_id, created_at`

// FindVenue implements store.VenueStore. Matching ignores case and surrounding space.
func (db *DB) FindVenue(ctx context.Context, name, city string) (*models.Venue, error) {
	v, err := scanVenue(db.conn.QueryRowContext(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE name_key = ?`, venueKey(name, city)))
	if err != nil {
		return nil, queryRowErr("venue", err)
	}
	return v, nil
}

// GetVenue implements store.ShowStore.
func (db *DB) GetVenue(ctx context.Context, id string) (*models.Venue, error) {
	v, err := scanVenue(db.conn.QueryRowContext(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE id = ?`, id))
	if err != nil {
		return nil, queryRowErr("venue", err)
	}
	return v, nil
}

// CreateVenue implements store.VenueStore.
func (db *DB) CreateVenue(ctx context.Context, v *models.Venue) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.Slug == "" {
		v.Slug = models.Slugify(v.Name)
	}
	now := db.now().UTC()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO venues
		(id, name, name_key, slug, city, state, country, external_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Name, venueKey(v.Name, v.City), v.Slug, nullString(v.City),
		nullString(v.State), nullString(v.Country), nullString(v.ExternalID), now)
	if err != nil {
		return insertErr("venue", err)
	}
	v.CreatedAt = now
	return nil
}

const showColumns = `id, artist_id, venue_id, name, slug, date, status, external_id,
	ticket_url, trending_score, updated_at, created_at`

func scanShow(row rowScanner) (*models.Show, error) {
	var (
		s                         models.Show
		venueID, name, ticketURL sql.NullString
		updated                   sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.ArtistID, &venueID, &name, &s.Slug, &s.Date, &s.Status,
		&s.ExternalID, &ticketURL, &s.TrendingScore, &updated, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.VenueID, s.Name, s.TicketURL = venueID.String, name.String, ticketURL.String
	s.UpdatedAt = timePtr(updated)
	return &s, nil
}

// GetShowByExternalID implements store.ShowStore.
func (db *DB) GetShowByExternalID(ctx context.Context, externalID string) (*models.Show, error) {
	s, err := scanShow(db.conn.QueryRowContext(ctx,
		`SELECT `+showColumns+` FROM shows WHERE external_id = ?`, externalID))
	if err != nil {
		return nil, queryRowErr("show", err)
	}
	return s, nil
}

// CreateShow implements store.ShowStore.
func (db *DB) CreateShow(ctx context.Context, s *models.Show) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Slug == "" {
		s.Slug = models.ShowSlug(s.Name, s.Date)
	}
	status := s.Status
	if status == "" {
		status = "upcoming"
	}
	now := db.now().UTC()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO shows (`+showColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ArtistID, nullString(s.VenueID), nullString(s.Name), s.Slug, s.Date.UTC(),
		status, s.ExternalID, nullString(s.TicketURL), s.TrendingScore, nullTime(s.UpdatedAt), now)
	if err != nil {
		return insertErr("show", err)
	}
	s.Status = status
	s.CreatedAt = now
	return nil
}

// ListPastShowsWithoutSetlist implements store.ShowStore.
func (db *DB) ListPastShowsWithoutSetlist(ctx context.Context, artistID string, before time.Time, limit int) ([]models.Show, error) {
	query := `SELECT ` + prefixed("s.", showColumns) + ` FROM shows s
		LEFT JOIN setlists sl ON sl.show_id = s.id
		WHERE s.artist_id = ? AND s.date < ? AND sl.id IS NULL
		ORDER BY s.date DESC`
	args := []any{artistID, before.UTC()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shows: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.Show
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan show: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// prefixed qualifies every column in a comma-separated list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
