// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/encore/internal/models"
)

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestMemory() *Memory {
	return NewMemory().WithClock(func() time.Time { return testNow })
}

func TestMemoryArtistConflicts(t *testing.T) {
	m := newTestMemory()
	ctx := context.Background()

	a := &models.Artist{Name: "Phoebe Bridgers", Slug: "phoebe-bridgers", ShowProviderID: "K1"}
	if err := m.CreateArtist(ctx, a); err != nil {
		t.Fatalf("CreateArtist: %v", err)
	}
	if a.ID == "" || a.ImportStatus != models.ImportPending {
		t.Errorf("expected id and pending status, got %+v", a)
	}

	dup := &models.Artist{Name: "Other", Slug: "other", ShowProviderID: "K1"}
	if err := m.CreateArtist(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate provider id, got %v", err)
	}

	got, err := m.GetArtistByShowProviderID(ctx, "K1")
	if err != nil || got.ID != a.ID {
		t.Fatalf("GetArtistByShowProviderID: %+v, %v", got, err)
	}
	if _, err := m.GetArtist(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryVenueCaseInsensitive(t *testing.T) {
	m := newTestMemory()
	ctx := context.Background()

	if err := m.CreateVenue(ctx, &models.Venue{Name: "The Fillmore", City: "San Francisco"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.FindVenue(ctx, "the fillmore", "SAN FRANCISCO"); err != nil {
		t.Errorf("FindVenue should match case-insensitively: %v", err)
	}
	if err := m.CreateVenue(ctx, &models.Venue{Name: "THE FILLMORE", City: "san francisco"}); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestMemoryListArtistsForSync(t *testing.T) {
	m := newTestMemory()
	ctx := context.Background()

	old := testNow.Add(-48 * time.Hour)
	fresh := testNow.Add(-time.Hour)
	for _, a := range []*models.Artist{
		{Name: "Never", Slug: "never"},
		{Name: "Old", Slug: "old"},
		{Name: "Fresh", Slug: "fresh"},
		{Name: "Busy", Slug: "busy"},
	} {
		if err := m.CreateArtist(ctx, a); err != nil {
			t.Fatal(err)
		}
		switch a.Name {
		case "Old":
			_ = m.SetArtistImportStatus(ctx, a.ID, models.ImportCompleted, &old)
		case "Fresh":
			_ = m.SetArtistImportStatus(ctx, a.ID, models.ImportCompleted, &fresh)
		case "Busy":
			_ = m.SetArtistImportStatus(ctx, a.ID, models.ImportImporting, nil)
		}
	}

	got, err := m.ListArtistsForSync(ctx, testNow.Add(-24*time.Hour), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "Never" || got[1].Name != "Old" {
		names := make([]string, len(got))
		for i, a := range got {
			names[i] = a.Name
		}
		t.Errorf("ListArtistsForSync = %v, want [Never Old]", names)
	}
}

func TestMemoryTrendingInputs(t *testing.T) {
	m := newTestMemory()
	ctx := context.Background()

	artist := &models.Artist{Name: "A", Slug: "a", Followers: 999}
	_ = m.CreateArtist(ctx, artist)
	upcoming := &models.Show{ArtistID: artist.ID, ExternalID: "E1", Date: testNow.Add(48 * time.Hour)}
	past := &models.Show{ArtistID: artist.ID, ExternalID: "E2", Date: testNow.Add(-30 * 24 * time.Hour)}
	_ = m.CreateShow(ctx, upcoming)
	_ = m.CreateShow(ctx, past)
	song := &models.Song{ArtistID: artist.ID, Title: "Motion Sickness", Popularity: 70}
	_ = m.CreateSong(ctx, song)

	m.RecordVote(Vote{ShowID: upcoming.ID, SongID: song.ID, At: testNow.Add(-time.Hour)})
	m.RecordVote(Vote{ShowID: upcoming.ID, SongID: song.ID, At: testNow.Add(-3 * 24 * time.Hour)})
	m.RecordVote(Vote{ShowID: past.ID, SongID: song.ID, At: testNow.Add(-20 * 24 * time.Hour)})

	w := models.TrendingWindows{Now: testNow, RecentWindow: 24 * time.Hour, WeekWindow: 7 * 24 * time.Hour}

	artists, _ := m.ArtistTrendingInputs(ctx, nil, w)
	if len(artists) != 1 {
		t.Fatalf("expected 1 artist, got %d", len(artists))
	}
	want := models.ArtistTrendingInputs{ArtistID: artist.ID, TotalVotes: 3, RecentVotes: 1, WeekVotes: 2, UpcomingShows: 1, Followers: 999}
	if artists[0] != want {
		t.Errorf("artist inputs = %+v, want %+v", artists[0], want)
	}

	shows, _ := m.ShowTrendingInputs(ctx, nil, w)
	if len(shows) != 1 || shows[0].ShowID != upcoming.ID || shows[0].VoteCount != 2 || shows[0].RecentVotes != 1 {
		t.Errorf("show inputs = %+v, want only the upcoming show", shows)
	}

	shows, _ = m.ShowTrendingInputs(ctx, []string{past.ID}, w)
	if len(shows) != 1 || shows[0].ShowID != past.ID {
		t.Errorf("explicit ids must include past shows, got %+v", shows)
	}

	songs, _ := m.SongTrendingInputs(ctx, nil, w)
	if len(songs) != 1 || songs[0].VoteCount != 3 || songs[0].WeekVotes != 2 || songs[0].Popularity != 70 {
		t.Errorf("song inputs = %+v", songs)
	}

	if err := m.UpdateTrendingScore(ctx, models.KindArtist, artist.ID, 12.5, testNow); err != nil {
		t.Fatal(err)
	}
	got, _ := m.GetArtist(ctx, artist.ID)
	if got.TrendingScore != 12.5 || got.TrendingUpdatedAt == nil {
		t.Errorf("score not written: %+v", got)
	}
	if err := m.UpdateTrendingScore(ctx, models.KindSong, "missing", 1, testNow); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryPastShowsWithoutSetlist(t *testing.T) {
	m := newTestMemory()
	ctx := context.Background()

	a := &models.Artist{Name: "A", Slug: "a"}
	_ = m.CreateArtist(ctx, a)
	s1 := &models.Show{ArtistID: a.ID, ExternalID: "1", Date: testNow.Add(-72 * time.Hour)}
	s2 := &models.Show{ArtistID: a.ID, ExternalID: "2", Date: testNow.Add(-24 * time.Hour)}
	s3 := &models.Show{ArtistID: a.ID, ExternalID: "3", Date: testNow.Add(24 * time.Hour)}
	for _, s := range []*models.Show{s1, s2, s3} {
		_ = m.CreateShow(ctx, s)
	}
	_ = m.CreateSetlist(ctx, &models.Setlist{ShowID: s1.ID, ExternalID: "sl"})

	got, _ := m.ListPastShowsWithoutSetlist(ctx, a.ID, testNow, 10)
	if len(got) != 1 || got[0].ID != s2.ID {
		t.Errorf("expected only s2, got %+v", got)
	}
}
