// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const (
	windowKeyPrefix = "ratelimit:"

	// conflictRetries bounds retries of a transaction that lost a write race.
	conflictRetries = 8
)

// BadgerWindowStore persists windows in BadgerDB so quotas survive restarts.
// Each entry carries a TTL equal to its remaining window. Increments are
// serialized in process; the conflict retry covers other writers of the DB.
type BadgerWindowStore struct {
	db *badger.DB
	mu sync.Mutex
}

// NewBadgerWindowStore wraps an open BadgerDB.
func NewBadgerWindowStore(db *badger.DB) *BadgerWindowStore {
	return &BadgerWindowStore{db: db}
}

// Increment implements WindowStore with one read-write transaction.
func (s *BadgerWindowStore) Increment(ctx context.Context, key string, maxRequests int, window time.Duration, now time.Time) (bool, error) {
	k := []byte(windowKeyPrefix + key)

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < conflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		var allowed bool
		err := s.db.Update(func(txn *badger.Txn) error {
			var w Window
			found := false

			item, err := txn.Get(k)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return err
			default:
				found = true
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &w)
				}); err != nil {
					return fmt.Errorf("decode window: %w", err)
				}
			}

			w, allowed = admit(w, found, maxRequests, window, now)
			data, err := json.Marshal(w)
			if err != nil {
				return fmt.Errorf("encode window: %w", err)
			}

			ttl := w.ResetAt.Sub(now)
			if ttl < time.Second {
				ttl = time.Second
			}
			return txn.SetEntry(badger.NewEntry(k, data).WithTTL(ttl))
		})

		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return false, err
		}
		return allowed, nil
	}
	return false, fmt.Errorf("window %s: %w after %d attempts", key, badger.ErrConflict, conflictRetries)
}
