// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

// Package ingest pulls one artist's records from a provider and writes them
// through the storage collaborator.
//
// Each service folds the fetched records into a Summary. A record's failure is
// counted and detailed but never affects another record. Only a failed page
// fetch (including a rejecting circuit breaker) or cancellation stops an
// ingest early; a spent provider quota stops it too, marking the summary
// Truncated without an error.
package ingest

import (
	"context"
	"errors"

	"github.com/tomtom215/encore/internal/metrics"
	"github.com/tomtom215/encore/internal/providers"
	"github.com/tomtom215/encore/internal/resilience"
)

// Kind names a canonical record type.
type Kind string

const (
	KindShow    Kind = "show"
	KindVenue   Kind = "venue"
	KindAlbum   Kind = "album"
	KindSong    Kind = "song"
	KindSetlist Kind = "setlist"
)

// Outcome of one record.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeExisting Outcome = "existing"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Request selects what to ingest.
type Request struct {
	OwnerEntityID string // Canonical artist id
	ProviderKey   string // The artist's identifier at the provider (setlists: the artist name)
	Concurrency   int    // Parallel sub-fetches where the provider shape allows; <= 1 is sequential
}

// RecordDetail is the audit line of one record.
type RecordDetail struct {
	Kind       Kind    `json:"kind"`
	ExternalID string  `json:"externalId"`
	Outcome    Outcome `json:"outcome"`
	Error      string  `json:"error,omitempty"`
}

// Summary is the result of an ingest.
type Summary struct {
	Synced    int            `json:"synced"`
	Errors    int            `json:"errors"`
	New       map[Kind]int   `json:"new"`
	Details   []RecordDetail `json:"details,omitempty"`
	Truncated bool           `json:"truncated,omitempty"`
}

func newSummary() Summary {
	return Summary{New: make(map[Kind]int)}
}

func (s Summary) NewShows() int    { return s.New[KindShow] }
func (s Summary) NewVenues() int   { return s.New[KindVenue] }
func (s Summary) NewAlbums() int   { return s.New[KindAlbum] }
func (s Summary) NewSongs() int    { return s.New[KindSong] }
func (s Summary) NewSetlists() int { return s.New[KindSetlist] }

// Merge adds o's counts and details to s.
func (s Summary) Merge(o Summary) Summary {
	if s.New == nil {
		s.New = make(map[Kind]int)
	}
	s.Synced += o.Synced
	s.Errors += o.Errors
	for k, n := range o.New {
		s.New[k] += n
	}
	s.Details = append(s.Details, o.Details...)
	s.Truncated = s.Truncated || o.Truncated
	return s
}

// recordResult is what one step reports about its record.
type recordResult struct {
	ExternalID string
	Outcome    Outcome
	Created    map[Kind]int // Records created while handling this one, itself included
}

// step handles one record.
type step[R any] func(ctx context.Context, rec R) (recordResult, error)

// fold applies fn to every record, accumulating into acc. Record errors are
// counted and folding continues; a fatal error (cancellation, rejecting
// breaker) stops the fold and is returned. A spent quota stops the fold and
// marks acc Truncated.
func fold[R any](ctx context.Context, acc Summary, kind Kind, records []R, id func(R) string, fn step[R]) (Summary, error) {
	if acc.New == nil {
		acc.New = make(map[Kind]int)
	}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return acc, err
		}

		res, err := fn(ctx, rec)
		if err != nil {
			if errors.Is(err, providers.ErrQuotaExhausted) {
				acc.Truncated = true
				return acc, nil
			}
			if fatal(err) {
				return acc, err
			}
			acc.Errors++
			acc.Details = append(acc.Details, RecordDetail{Kind: kind, ExternalID: id(rec), Outcome: OutcomeFailed, Error: err.Error()})
			metrics.RecordIngestRecord(string(kind), string(OutcomeFailed))
			continue
		}

		acc.Synced++
		for k, n := range res.Created {
			acc.New[k] += n
		}
		acc.Details = append(acc.Details, RecordDetail{Kind: kind, ExternalID: res.ExternalID, Outcome: res.Outcome})
		metrics.RecordIngestRecord(string(kind), string(res.Outcome))
	}
	return acc, nil
}

// fatal reports errors that make further records pointless.
func fatal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, resilience.ErrCircuitOpen)
}
