// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package models

import "time"

// ArtistTrendingInputs are the aggregates feeding an artist score.
type ArtistTrendingInputs struct {
	ArtistID      string
	TotalVotes    int64
	RecentVotes   int64 // Within the recent window
	WeekVotes     int64 // Within the week window
	UpcomingShows int64
	Followers     int64
}

// ShowTrendingInputs are the aggregates feeding a show score.
type ShowTrendingInputs struct {
	ShowID      string
	VoteCount   int64
	RecentVotes int64
	Date        time.Time
}

// SongTrendingInputs are the aggregates feeding a song score.
type SongTrendingInputs struct {
	SongID      string
	Popularity  int // Provider popularity, 0-100
	VoteCount   int64
	RecentVotes int64
	WeekVotes   int64
}

// TrendingWindows bounds the vote aggregation periods.
type TrendingWindows struct {
	Now          time.Time
	RecentWindow time.Duration
	WeekWindow   time.Duration
}

// RecentSince returns the start of the recent window.
func (w TrendingWindows) RecentSince() time.Time { return w.Now.Add(-w.RecentWindow) }

// WeekSince returns the start of the week window.
func (w TrendingWindows) WeekSince() time.Time { return w.Now.Add(-w.WeekWindow) }
