// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tomtom215/encore/internal/store"
)

// closeQuietly closes a resource in an error path where Close errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// isUniqueConstraintError reports a DuckDB unique or primary key violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "primary key constraint")
}

// insertErr maps a failed INSERT onto the store sentinels.
func insertErr(entity string, err error) error {
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%s: %w", entity, store.ErrConflict)
	}
	return fmt.Errorf("failed to insert %s: %w", entity, err)
}

// queryRowErr maps a failed single-row query onto the store sentinels.
func queryRowErr(entity string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", entity, store.ErrNotFound)
	}
	return fmt.Errorf("failed to query %s: %w", entity, err)
}

// nullString stores empty strings as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// inClause returns " AND col IN (?, ?, ...)" with args, or "" for no ids.
func inClause(col string, ids []string) (string, []any) {
	if len(ids) == 0 {
		return "", nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return " AND " + col + " IN (" + strings.Join(placeholders, ", ") + ")", args
}
