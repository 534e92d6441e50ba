// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/encore/internal/logging"
)

// Tracker records import progress in a Store.
type Tracker struct {
	store Store
	mu    sync.Mutex
	now   func() time.Time
}

// NewTracker creates a tracker over store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// WithClock replaces the tracker clock.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// StartSync creates (or resets) the record for artistID with every step pending.
func (t *Tracker) StartSync(ctx context.Context, artistID, artistName string) (*SyncProgress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := newSyncProgress(artistID, artistName, t.now())
	if err := t.store.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("start progress %s: %w", artistID, err)
	}
	logging.Debug().Str("artist_id", artistID).Msg("Import progress started")
	return p.clone(), nil
}

// UpdateStepStatus transitions one step and recomputes the overall status.
// A nil count leaves the step's count unchanged.
func (t *Tracker) UpdateStepStatus(ctx context.Context, artistID string, step Step, status Status, count *int) error {
	return t.mutate(ctx, artistID, func(p *SyncProgress) error {
		sp, ok := p.Steps[step]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownStep, step)
		}
		if !status.Valid() {
			return fmt.Errorf("invalid status %q", status)
		}
		sp.Status = status
		if count != nil {
			n := *count
			sp.Count = &n
		}
		p.Steps[step] = sp
		return nil
	})
}

// FailStep marks step failed and records err on both the step and the record.
func (t *Tracker) FailStep(ctx context.Context, artistID string, step Step, cause error) error {
	return t.mutate(ctx, artistID, func(p *SyncProgress) error {
		sp, ok := p.Steps[step]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownStep, step)
		}
		sp.Status = StatusFailed
		if cause != nil {
			sp.Error = cause.Error()
			p.Error = cause.Error()
		}
		p.Steps[step] = sp
		return nil
	})
}

// SetError force-fails the whole record.
func (t *Tracker) SetError(ctx context.Context, artistID, message string) error {
	return t.mutate(ctx, artistID, func(p *SyncProgress) error {
		p.Forced = true
		p.Error = message
		return nil
	})
}

// GetProgress returns a copy of the record, or ErrNotFound.
func (t *Tracker) GetProgress(ctx context.Context, artistID string) (*SyncProgress, error) {
	return t.store.Get(ctx, artistID)
}

// ClearProgress removes the record. Clearing a missing record is not an error.
func (t *Tracker) ClearProgress(ctx context.Context, artistID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Delete(ctx, artistID)
}

// List returns all records, oldest start first.
func (t *Tracker) List(ctx context.Context) ([]*SyncProgress, error) {
	return t.store.List(ctx)
}

// Prune removes finished records that completed more than olderThan ago.
// It returns the number removed.
func (t *Tracker) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	records, err := t.store.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := t.now().Add(-olderThan)
	removed := 0
	for _, p := range records {
		if !p.Finished() || p.CompletedAt.After(cutoff) {
			continue
		}
		if err := t.store.Delete(ctx, p.ArtistID); err != nil {
			return removed, fmt.Errorf("prune progress %s: %w", p.ArtistID, err)
		}
		removed++
	}
	return removed, nil
}

func (t *Tracker) mutate(ctx context.Context, artistID string, fn func(*SyncProgress) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.store.Get(ctx, artistID)
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		return err
	}
	p.recompute(t.now())
	return t.store.Put(ctx, p)
}
