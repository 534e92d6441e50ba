// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/encore/internal/models"
)

// Vote is a user vote on a song performed at a show. The wider application
// records votes; Memory accepts them directly so trending can be exercised.
type Vote struct {
	ShowID string
	SongID string
	At     time.Time
}

// Memory is an in-process Store. It is safe for concurrent use and returns
// copies, never internal pointers.
type Memory struct {
	mu sync.RWMutex
	now func() time.Time

	artists  map[string]*models.Artist
	venues   map[string]*models.Venue
	shows    map[string]*models.Show
	albums   map[string]*models.Album
	songs    map[string]*models.Song
	setlists map[string]*models.Setlist
	votes    []Vote
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		now:      time.Now,
		artists:  make(map[string]*models.Artist),
		venues:   make(map[string]*models.Venue),
		shows:    make(map[string]*models.Show),
		albums:   make(map[string]*models.Album),
		songs:    make(map[string]*models.Song),
		setlists: make(map[string]*models.Setlist),
	}
}

// WithClock replaces the store's clock used for created/updated stamps.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// RecordVote adds a vote.
func (m *Memory) RecordVote(v Vote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes = append(m.votes, v)
}

// Ping implements Store.
func (m *Memory) Ping(context.Context) error { return nil }

// Close implements Store.
func (m *Memory) Close() error { return nil }

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

func sameFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Artists

func (m *Memory) GetArtist(_ context.Context, id string) (*models.Artist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.artists[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *a
	return &c, nil
}

func (m *Memory) GetArtistByShowProviderID(_ context.Context, providerID string) (*models.Artist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.artists {
		if a.ShowProviderID == providerID {
			c := *a
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateArtist(_ context.Context, a *models.Artist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.artists {
		if existing.Slug == a.Slug || (a.ShowProviderID != "" && existing.ShowProviderID == a.ShowProviderID) {
			return ErrConflict
		}
	}
	a.ID = newID(a.ID)
	now := m.now()
	a.CreatedAt, a.UpdatedAt = now, now
	if a.ImportStatus == "" {
		a.ImportStatus = models.ImportPending
	}
	c := *a
	m.artists[a.ID] = &c
	return nil
}

func (m *Memory) UpdateArtistProfile(_ context.Context, a *models.Artist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.artists[a.ID]
	if !ok {
		return ErrNotFound
	}
	existing.CatalogProviderID = a.CatalogProviderID
	existing.SetlistProviderID = a.SetlistProviderID
	existing.ImageURL = a.ImageURL
	existing.Genres = append([]string(nil), a.Genres...)
	existing.Popularity = a.Popularity
	existing.Followers = a.Followers
	existing.UpdatedAt = m.now()
	return nil
}

func (m *Memory) SetArtistImportStatus(_ context.Context, id string, status models.ImportStatus, syncedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artists[id]
	if !ok {
		return ErrNotFound
	}
	a.ImportStatus = status
	if syncedAt != nil {
		t := *syncedAt
		a.LastSyncedAt = &t
	}
	a.UpdatedAt = m.now()
	return nil
}

func (m *Memory) SetArtistLastSynced(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artists[id]
	if !ok {
		return ErrNotFound
	}
	t := at
	a.LastSyncedAt = &t
	return nil
}

func (m *Memory) ListArtistsForSync(_ context.Context, staleBefore time.Time, limit int) ([]models.Artist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Artist
	for _, a := range m.artists {
		if a.ImportStatus == models.ImportImporting {
			continue
		}
		if a.LastSyncedAt == nil || a.LastSyncedAt.Before(staleBefore) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := out[i].LastSyncedAt, out[j].LastSyncedAt
		switch {
		case li == nil && lj == nil:
			return out[i].Name < out[j].Name
		case li == nil:
			return true
		case lj == nil:
			return false
		default:
			return li.Before(*lj)
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ListArtistsByStatus(_ context.Context, status models.ImportStatus, updatedBefore time.Time) ([]models.Artist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Artist
	for _, a := range m.artists {
		if a.ImportStatus == status && a.UpdatedAt.Before(updatedBefore) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

// SetArtistUpdatedAt backdates an artist's update stamp. Intended for tests.
func (m *Memory) SetArtistUpdatedAt(id string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.artists[id]; ok {
		a.UpdatedAt = at
	}
}

// Venues

func (m *Memory) FindVenue(_ context.Context, name, city string) (*models.Venue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.venues {
		if sameFold(v.Name, name) && sameFold(v.City, city) {
			c := *v
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetVenue(_ context.Context, id string) (*models.Venue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.venues[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *v
	return &c, nil
}

func (m *Memory) CreateVenue(_ context.Context, v *models.Venue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.venues {
		if sameFold(existing.Name, v.Name) && sameFold(existing.City, v.City) {
			return ErrConflict
		}
	}
	v.ID = newID(v.ID)
	v.CreatedAt = m.now()
	c := *v
	m.venues[v.ID] = &c
	return nil
}

// Shows

func (m *Memory) GetShowByExternalID(_ context.Context, externalID string) (*models.Show, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.shows {
		if s.ExternalID == externalID {
			c := *s
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateShow(_ context.Context, s *models.Show) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.shows {
		if existing.ExternalID == s.ExternalID {
			return ErrConflict
		}
	}
	s.ID = newID(s.ID)
	s.CreatedAt = m.now()
	c := *s
	m.shows[s.ID] = &c
	return nil
}

func (m *Memory) ListPastShowsWithoutSetlist(_ context.Context, artistID string, before time.Time, limit int) ([]models.Show, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hasSetlist := make(map[string]bool, len(m.setlists))
	for _, sl := range m.setlists {
		hasSetlist[sl.ShowID] = true
	}
	var out []models.Show
	for _, s := range m.shows {
		if s.ArtistID == artistID && s.Date.Before(before) && !hasSetlist[s.ID] {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Catalog

func (m *Memory) GetAlbumByExternalID(_ context.Context, externalID string) (*models.Album, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.albums {
		if a.ExternalID == externalID {
			c := *a
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateAlbum(_ context.Context, a *models.Album) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.albums {
		if existing.ExternalID == a.ExternalID {
			return ErrConflict
		}
	}
	a.ID = newID(a.ID)
	a.CreatedAt = m.now()
	c := *a
	m.albums[a.ID] = &c
	return nil
}

func (m *Memory) GetSongByExternalID(_ context.Context, externalID string) (*models.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.songs {
		if s.ExternalID != "" && s.ExternalID == externalID {
			c := *s
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindSongByTitle(_ context.Context, artistID, title string) (*models.Song, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.songs {
		if s.ArtistID == artistID && sameFold(s.Title, title) {
			c := *s
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateSong(_ context.Context, s *models.Song) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.songs {
		if s.ExternalID != "" && existing.ExternalID == s.ExternalID {
			return ErrConflict
		}
	}
	s.ID = newID(s.ID)
	s.CreatedAt = m.now()
	c := *s
	m.songs[s.ID] = &c
	return nil
}

// Setlists

func (m *Memory) GetSetlistByExternalID(_ context.Context, externalID string) (*models.Setlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sl := range m.setlists {
		if sl.ExternalID == externalID {
			c := *sl
			c.SongIDs = append([]string(nil), sl.SongIDs...)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateSetlist(_ context.Context, sl *models.Setlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.setlists {
		if existing.ExternalID == sl.ExternalID || existing.ShowID == sl.ShowID {
			return ErrConflict
		}
	}
	sl.ID = newID(sl.ID)
	sl.CreatedAt = m.now()
	c := *sl
	c.SongIDs = append([]string(nil), sl.SongIDs...)
	m.setlists[sl.ID] = &c
	return nil
}

// Trending

func idFilter(ids []string) func(string) bool {
	if len(ids) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(id string) bool {
		_, ok := set[id]
		return ok
	}
}

// voteCounts tallies votes matching key into total, recent and week counts.
func (m *Memory) voteCounts(match func(Vote) bool, w models.TrendingWindows) (total, recent, week int64) {
	recentSince, weekSince := w.RecentSince(), w.WeekSince()
	for _, v := range m.votes {
		if !match(v) {
			continue
		}
		total++
		if v.At.After(recentSince) {
			recent++
		}
		if v.At.After(weekSince) {
			week++
		}
	}
	return total, recent, week
}

func (m *Memory) ArtistTrendingInputs(_ context.Context, ids []string, w models.TrendingWindows) ([]models.ArtistTrendingInputs, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := idFilter(ids)

	showArtist := make(map[string]string, len(m.shows))
	upcoming := make(map[string]int64)
	for _, s := range m.shows {
		showArtist[s.ID] = s.ArtistID
		if !s.Date.Before(w.Now) && s.Status != "cancelled" {
			upcoming[s.ArtistID]++
		}
	}

	out := make([]models.ArtistTrendingInputs, 0, len(m.artists))
	for _, a := range m.artists {
		if !want(a.ID) {
			continue
		}
		artistID := a.ID
		total, recent, week := m.voteCounts(func(v Vote) bool { return showArtist[v.ShowID] == artistID }, w)
		out = append(out, models.ArtistTrendingInputs{
			ArtistID:      a.ID,
			TotalVotes:    total,
			RecentVotes:   recent,
			WeekVotes:     week,
			UpcomingShows: upcoming[a.ID],
			Followers:     a.Followers,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArtistID < out[j].ArtistID })
	return out, nil
}

func (m *Memory) ShowTrendingInputs(_ context.Context, ids []string, w models.TrendingWindows) ([]models.ShowTrendingInputs, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := idFilter(ids)
	today := w.Now.UTC().Truncate(24 * time.Hour)

	var out []models.ShowTrendingInputs
	for _, s := range m.shows {
		if len(ids) == 0 && s.Date.Before(today) {
			continue
		}
		if !want(s.ID) {
			continue
		}
		showID := s.ID
		total, recent, _ := m.voteCounts(func(v Vote) bool { return v.ShowID == showID }, w)
		out = append(out, models.ShowTrendingInputs{ShowID: s.ID, VoteCount: total, RecentVotes: recent, Date: s.Date})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShowID < out[j].ShowID })
	return out, nil
}

func (m *Memory) SongTrendingInputs(_ context.Context, ids []string, w models.TrendingWindows) ([]models.SongTrendingInputs, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := idFilter(ids)

	var out []models.SongTrendingInputs
	for _, s := range m.songs {
		if !want(s.ID) {
			continue
		}
		songID := s.ID
		total, recent, week := m.voteCounts(func(v Vote) bool { return v.SongID == songID }, w)
		out = append(out, models.SongTrendingInputs{
			SongID:      s.ID,
			Popularity:  s.Popularity,
			VoteCount:   total,
			RecentVotes: recent,
			WeekVotes:   week,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SongID < out[j].SongID })
	return out, nil
}

func (m *Memory) UpdateTrendingScore(_ context.Context, kind models.EntityKind, id string, score float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case models.KindArtist:
		a, ok := m.artists[id]
		if !ok {
			return ErrNotFound
		}
		a.TrendingScore = score
		t := at
		a.TrendingUpdatedAt = &t
	case models.KindShow:
		s, ok := m.shows[id]
		if !ok {
			return ErrNotFound
		}
		s.TrendingScore = score
		t := at
		s.UpdatedAt = &t
	case models.KindSong:
		s, ok := m.songs[id]
		if !ok {
			return ErrNotFound
		}
		s.TrendingScore = score
		t := at
		s.TrendingUpdatedAt = &t
	default:
		return ErrNotFound
	}
	return nil
}

// Counts returns the number of stored records per entity. Intended for tests.
func (m *Memory) Counts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]int{
		"artists":  len(m.artists),
		"venues":   len(m.venues),
		"shows":    len(m.shows),
		"albums":   len(m.albums),
		"songs":    len(m.songs),
		"setlists": len(m.setlists),
	}
}

var _ Store = (*Memory)(nil)
