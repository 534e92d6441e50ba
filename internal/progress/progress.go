// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

// Package progress tracks the step-by-step status of per-artist imports.
//
// A record holds five fixed steps (artist, albums, songs, shows, setlists).
// The overall status is always derived from the steps:
//
//   - failed if any step failed, or the record was force-failed with SetError
//   - completed if every step completed
//   - syncing if any step is syncing or completed
//   - pending otherwise
//
// Records are scoped per artist and only mutated by the import driving that
// artist. The Tracker still serializes its read-modify-write cycles so that
// readers (HTTP progress endpoint) never observe a torn record.
package progress

import (
	"errors"
	"time"
)

// Status of a step or a whole record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSyncing   Status = "syncing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is one of the four statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSyncing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Step names one import stage.
type Step string

const (
	StepArtist   Step = "artist"
	StepAlbums   Step = "albums"
	StepSongs    Step = "songs"
	StepShows    Step = "shows"
	StepSetlists Step = "setlists"
)

// Steps lists every step in import order.
var Steps = []Step{StepArtist, StepAlbums, StepSongs, StepShows, StepSetlists}

// ErrNotFound is returned for an artist with no progress record.
var ErrNotFound = errors.New("progress not found")

// ErrUnknownStep is returned when updating a step outside Steps.
var ErrUnknownStep = errors.New("unknown progress step")

// StepProgress is one step's state.
type StepProgress struct {
	Status Status `json:"status"`
	Count  *int   `json:"count,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SyncProgress is the record for one artist import.
type SyncProgress struct {
	ArtistID    string                `json:"artistId"`
	ArtistName  string                `json:"artistName"`
	Status      Status                `json:"status"`
	StartedAt   time.Time             `json:"startedAt"`
	CompletedAt *time.Time            `json:"completedAt,omitempty"`
	Steps       map[Step]StepProgress `json:"steps"`
	Error       string                `json:"error,omitempty"`
	Forced      bool                  `json:"forced,omitempty"`
}

// newSyncProgress builds a record with every step pending.
func newSyncProgress(artistID, artistName string, now time.Time) *SyncProgress {
	steps := make(map[Step]StepProgress, len(Steps))
	for _, s := range Steps {
		steps[s] = StepProgress{Status: StatusPending}
	}
	return &SyncProgress{
		ArtistID:   artistID,
		ArtistName: artistName,
		Status:     StatusPending,
		StartedAt:  now,
		Steps:      steps,
	}
}

// DeriveStatus computes the overall status from step statuses.
func DeriveStatus(steps map[Step]StepProgress, forced bool) Status {
	if forced {
		return StatusFailed
	}
	completed, active := 0, false
	for _, s := range Steps {
		switch steps[s].Status {
		case StatusFailed:
			return StatusFailed
		case StatusCompleted:
			completed++
			active = true
		case StatusSyncing:
			active = true
		}
	}
	switch {
	case completed == len(Steps):
		return StatusCompleted
	case active:
		return StatusSyncing
	default:
		return StatusPending
	}
}

// settled reports whether no step is still pending or syncing.
func (p *SyncProgress) settled() bool {
	for _, s := range Steps {
		switch p.Steps[s].Status {
		case StatusPending, StatusSyncing:
			return false
		}
	}
	return true
}

// recompute refreshes Status and stamps CompletedAt once the record settles.
func (p *SyncProgress) recompute(now time.Time) {
	p.Status = DeriveStatus(p.Steps, p.Forced)
	if p.CompletedAt == nil && (p.Forced || p.settled()) {
		t := now
		p.CompletedAt = &t
	}
}

// Finished reports a terminal record.
func (p *SyncProgress) Finished() bool {
	return p.CompletedAt != nil
}

func (p *SyncProgress) clone() *SyncProgress {
	c := *p
	c.Steps = make(map[Step]StepProgress, len(p.Steps))
	for k, v := range p.Steps {
		if v.Count != nil {
			n := *v.Count
			v.Count = &n
		}
		c.Steps[k] = v
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Count is a convenience for the optional count argument.
func Count(n int) *int { return &n }
