// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package progress

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Store persists progress records.
type Store interface {
	Get(ctx context.Context, artistID string) (*SyncProgress, error)
	Put(ctx context.Context, p *SyncProgress) error
	Delete(ctx context.Context, artistID string) error
	List(ctx context.Context) ([]*SyncProgress, error)
}

// MemoryStore keeps records in a map.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*SyncProgress
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*SyncProgress)}
}

func (s *MemoryStore) Get(_ context.Context, artistID string) (*SyncProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.records[artistID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, p *SyncProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[p.ArtistID] = p.clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, artistID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, artistID)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*SyncProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*SyncProgress, 0, len(s.records))
	for _, p := range s.records {
		out = append(out, p.clone())
	}
	sortByStart(out)
	return out, nil
}

const progressKeyPrefix = "progress:"

// BadgerStore persists records in BadgerDB with a TTL so abandoned records
// expire without a prune.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerStore wraps an open BadgerDB. A ttl <= 0 keeps records until deleted.
func NewBadgerStore(db *badger.DB, ttl time.Duration) *BadgerStore {
	return &BadgerStore{db: db, ttl: ttl}
}

func (s *BadgerStore) Get(_ context.Context, artistID string) (*SyncProgress, error) {
	var p SyncProgress
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(progressKeyPrefix + artistID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read progress %s: %w", artistID, err)
	}
	return &p, nil
}

func (s *BadgerStore) Put(_ context.Context, p *SyncProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(progressKeyPrefix+p.ArtistID), data)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (s *BadgerStore) Delete(_ context.Context, artistID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(progressKeyPrefix + artistID))
	})
}

func (s *BadgerStore) List(_ context.Context) ([]*SyncProgress, error) {
	var out []*SyncProgress
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(progressKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var p SyncProgress
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return fmt.Errorf("decode progress: %w", err)
			}
			out = append(out, &p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByStart(out)
	return out, nil
}

func sortByStart(ps []*SyncProgress) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].StartedAt.Equal(ps[j].StartedAt) {
			return ps[i].ArtistID < ps[j].ArtistID
		}
		return ps[i].StartedAt.Before(ps[j].StartedAt)
	})
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*BadgerStore)(nil)
)
