// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

// Package state opens the key-value backend shared by rate-limit windows and
// import progress records.
package state

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/encore/internal/config"
	"github.com/tomtom215/encore/internal/progress"
	"github.com/tomtom215/encore/internal/resilience"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// State owns the optional BadgerDB handle and hands out stores built on it.
type State struct {
	cfg config.StateConfig
	db  *badger.DB
}

// Open opens BadgerDB at cfg.Path for the badger backend. The memory backend
// opens nothing.
func Open(cfg config.StateConfig) (*State, error) {
	s := &State{cfg: cfg}
	switch cfg.Backend {
	case BackendBadger:
		opts := badger.DefaultOptions(cfg.Path)
		opts.Logger = nil // Suppress BadgerDB logs
		db, err := badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open badger db for state: %w", err)
		}
		s.db = db
	case BackendMemory, "":
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
	return s, nil
}

// FromDB wraps an already open BadgerDB.
func FromDB(cfg config.StateConfig, db *badger.DB) *State {
	return &State{cfg: cfg, db: db}
}

// WindowStore returns the rate-limit window store for the backend.
func (s *State) WindowStore() resilience.WindowStore {
	if s.db != nil {
		return resilience.NewBadgerWindowStore(s.db)
	}
	return resilience.NewMemoryWindowStore()
}

// ProgressStore returns the progress record store for the backend.
func (s *State) ProgressStore() progress.Store {
	if s.db != nil {
		return progress.NewBadgerStore(s.db, s.cfg.ProgressTTL)
	}
	return progress.NewMemoryStore()
}

// Persistent reports whether state survives restarts.
func (s *State) Persistent() bool {
	return s.db != nil
}

// gcDiscardRatio is the share of a value log file that must be stale before
// it is rewritten.
const gcDiscardRatio = 0.5

// RunGC reclaims BadgerDB value log space until nothing is left to rewrite.
// It does nothing for the memory backend.
func (s *State) RunGC() error {
	if s.db == nil {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run value log gc: %w", err)
		}
	}
}

// Close closes BadgerDB if one was opened.
func (s *State) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
