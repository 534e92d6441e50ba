// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/encore/internal/config"
	"github.com/tomtom215/encore/internal/models"
	"github.com/tomtom215/encore/internal/store"
)

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.now = func() time.Time { return testNow }
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestArtistCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := &models.Artist{Name: "Big Thief", Slug: "big-thief", ShowProviderID: "K8vZ", Genres: []string{"indie", "folk"}}
	if err := db.CreateArtist(ctx, a); err != nil {
		t.Fatalf("CreateArtist: %v", err)
	}

	got, err := db.GetArtistByShowProviderID(ctx, "K8vZ")
	if err != nil {
		t.Fatalf("GetArtistByShowProviderID: %v", err)
	}
	if got.ID != a.ID || got.ImportStatus != models.ImportPending || len(got.Genres) != 2 {
		t.Errorf("unexpected artist: %+v", got)
	}

	if err := db.CreateArtist(ctx, &models.Artist{Name: "Dup", Slug: "big-thief"}); !errors.Is(err, store.ErrConflict) {
		t.Errorf("duplicate slug: expected ErrConflict, got %v", err)
	}
	// Empty provider ids are NULL and never collide.
	if err := db.CreateArtist(ctx, &models.Artist{Name: "One", Slug: "one"}); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateArtist(ctx, &models.Artist{Name: "Two", Slug: "two"}); err != nil {
		t.Errorf("second artist without provider id should insert: %v", err)
	}

	synced := testNow
	if err := db.SetArtistImportStatus(ctx, a.ID, models.ImportCompleted, &synced); err != nil {
		t.Fatal(err)
	}
	if err := db.SetArtistImportStatus(ctx, a.ID, models.ImportImporting, nil); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetArtist(ctx, a.ID)
	if got.LastSyncedAt == nil || !got.LastSyncedAt.Equal(synced) {
		t.Errorf("nil syncedAt must keep previous value, got %v", got.LastSyncedAt)
	}

	if err := db.SetArtistImportStatus(ctx, "missing", models.ImportFailed, nil); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	stamped := testNow.Add(time.Hour)
	if err := db.SetArtistLastSynced(ctx, a.ID, stamped); err != nil {
		t.Fatal(err)
	}
	after, _ := db.GetArtist(ctx, a.ID)
	if after.LastSyncedAt == nil || !after.LastSyncedAt.Equal(stamped) {
		t.Errorf("LastSyncedAt = %v, want %v", after.LastSyncedAt, stamped)
	}
	if after.ImportStatus != got.ImportStatus || !after.UpdatedAt.Equal(got.UpdatedAt) {
		t.Errorf("sync stamp changed status or updated_at: %+v", after)
	}
	if err := db.SetArtistLastSynced(ctx, "missing", stamped); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	list, err := db.ListArtistsForSync(ctx, testNow.Add(-time.Hour), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("importing artist must be excluded, got %d artists", len(list))
	}
}

func TestVenueMatchingIgnoresCase(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	v := &models.Venue{Name: "Red Rocks Amphitheatre", City: "Morrison"}
	if err := db.CreateVenue(ctx, v); err != nil {
		t.Fatal(err)
	}
	found, err := db.FindVenue(ctx, " red rocks amphitheatre", "MORRISON")
	if err != nil || found.ID != v.ID {
		t.Fatalf("FindVenue: %+v, %v", found, err)
	}
	if err := db.CreateVenue(ctx, &models.Venue{Name: "RED ROCKS AMPHITHEATRE", City: "morrison"}); !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	if _, err := db.FindVenue(ctx, "Red Rocks Amphitheatre", "Denver"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other city, got %v", err)
	}
}

func TestShowsAndSetlists(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := &models.Artist{Name: "A", Slug: "a"}
	_ = db.CreateArtist(ctx, a)
	past := &models.Show{ArtistID: a.ID, Name: "Tour", ExternalID: "E1", Date: testNow.Add(-48 * time.Hour)}
	older := &models.Show{ArtistID: a.ID, Name: "Tour", ExternalID: "E2", Date: testNow.Add(-96 * time.Hour)}
	for _, s := range []*models.Show{past, older} {
		if err := db.CreateShow(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.CreateShow(ctx, &models.Show{ArtistID: a.ID, ExternalID: "E1", Date: testNow}); !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate external id, got %v", err)
	}

	song := &models.Song{ArtistID: a.ID, Title: "Not", ExternalID: "T1"}
	if err := db.CreateSong(ctx, song); err != nil {
		t.Fatal(err)
	}
	if s, err := db.FindSongByTitle(ctx, a.ID, "NOT"); err != nil || s.ID != song.ID {
		t.Errorf("FindSongByTitle: %+v, %v", s, err)
	}

	sl := &models.Setlist{ShowID: past.ID, ExternalID: "SL1", SongIDs: []string{song.ID, song.ID}}
	if err := db.CreateSetlist(ctx, sl); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetSetlistByExternalID(ctx, "SL1")
	if err != nil || len(got.SongIDs) != 2 {
		t.Fatalf("GetSetlistByExternalID: %+v, %v", got, err)
	}

	pending, err := db.ListPastShowsWithoutSetlist(ctx, a.ID, testNow, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != older.ID {
		t.Errorf("expected only the older show, got %+v", pending)
	}
}

func TestTrendingInputsMatchMemory(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := &models.Artist{Name: "A", Slug: "a", Followers: 999}
	_ = db.CreateArtist(ctx, a)
	upcoming := &models.Show{ArtistID: a.ID, ExternalID: "E1", Date: testNow.Add(48 * time.Hour)}
	past := &models.Show{ArtistID: a.ID, ExternalID: "E2", Date: testNow.Add(-30 * 24 * time.Hour)}
	_ = db.CreateShow(ctx, upcoming)
	_ = db.CreateShow(ctx, past)
	song := &models.Song{ArtistID: a.ID, Title: "Song", Popularity: 70}
	_ = db.CreateSong(ctx, song)

	for _, v := range []store.Vote{
		{ShowID: upcoming.ID, SongID: song.ID, At: testNow.Add(-time.Hour)},
		{ShowID: upcoming.ID, SongID: song.ID, At: testNow.Add(-3 * 24 * time.Hour)},
		{ShowID: past.ID, SongID: song.ID, At: testNow.Add(-20 * 24 * time.Hour)},
	} {
		if err := db.RecordVote(ctx, v); err != nil {
			t.Fatal(err)
		}
	}

	w := models.TrendingWindows{Now: testNow, RecentWindow: 24 * time.Hour, WeekWindow: 7 * 24 * time.Hour}

	artists, err := db.ArtistTrendingInputs(ctx, nil, w)
	if err != nil {
		t.Fatal(err)
	}
	want := models.ArtistTrendingInputs{ArtistID: a.ID, TotalVotes: 3, RecentVotes: 1, WeekVotes: 2, UpcomingShows: 1, Followers: 999}
	if len(artists) != 1 || artists[0] != want {
		t.Errorf("artist inputs = %+v, want %+v", artists, want)
	}

	shows, err := db.ShowTrendingInputs(ctx, nil, w)
	if err != nil {
		t.Fatal(err)
	}
	if len(shows) != 1 || shows[0].ShowID != upcoming.ID || shows[0].VoteCount != 2 || shows[0].RecentVotes != 1 {
		t.Errorf("show inputs = %+v", shows)
	}

	songs, err := db.SongTrendingInputs(ctx, []string{song.ID}, w)
	if err != nil {
		t.Fatal(err)
	}
	if len(songs) != 1 || songs[0].VoteCount != 3 || songs[0].WeekVotes != 2 || songs[0].Popularity != 70 {
		t.Errorf("song inputs = %+v", songs)
	}

	if err := db.UpdateTrendingScore(ctx, models.KindArtist, a.ID, 42.5, testNow); err != nil {
		t.Fatal(err)
	}
	got, _ := db.GetArtist(ctx, a.ID)
	if got.TrendingScore != 42.5 || got.TrendingUpdatedAt == nil {
		t.Errorf("score not persisted: %+v", got)
	}
	if err := db.UpdateTrendingScore(ctx, models.KindSong, song.ID, 12.5, testNow); err != nil {
		t.Fatal(err)
	}
	gotSong, err := db.FindSongByTitle(ctx, a.ID, "Song")
	if err != nil {
		t.Fatal(err)
	}
	if gotSong.TrendingScore != 12.5 || gotSong.TrendingUpdatedAt == nil || !gotSong.TrendingUpdatedAt.Equal(testNow) {
		t.Errorf("song score not persisted: %+v", gotSong)
	}
	if err := db.UpdateTrendingScore(ctx, models.KindShow, "missing", 1, testNow); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIsUniqueConstraintError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("Constraint Error: Duplicate key \"slug: a\" violates unique constraint"), true},
		{errors.New("PRIMARY KEY constraint violated"), true},
		{errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		if got := isUniqueConstraintError(tt.err); got != tt.want {
			t.Errorf("isUniqueConstraintError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
