// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/encore/internal/config"
	"github.com/tomtom215/encore/internal/resilience"
)

func testGuard(name string, quota int) Guard {
	reg := resilience.NewBreakerRegistry(resilience.BreakerSettings{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		HalfOpenRequests: 1,
	}, nil)
	return Guard{
		Breaker:     reg.Get(name),
		Pacer:       resilience.NewPacer(0, 0),
		Limiter:     resilience.NewRateLimiter(resilience.NewMemoryWindowStore()),
		QuotaReqs:   quota,
		QuotaWindow: time.Minute,
	}
}

func TestTicketmasterListEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("apikey") != "tm-key" || r.URL.Query().Get("attractionId") != "K1" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"_embedded": {"events": [{
				"id": "E1", "name": "Summer Tour", "url": "https://tickets/E1",
				"dates": {"start": {"localDate": "2026-07-01", "dateTime": "2026-07-02T02:00:00Z"}, "status": {"code": "onsale"}},
				"_embedded": {"venues": [{"id": "V1", "name": "The Fillmore", "city": {"name": "San Francisco"}, "state": {"stateCode": "CA"}, "country": {"countryCode": "US"}}]}
			}, {
				"id": "E2", "name": "Cancelled Night",
				"dates": {"start": {"localDate": "2026-08-01"}, "status": {"code": "cancelled"}}
			}]},
			"page": {"number": 0, "totalPages": 3}
		}`))
	}))
	defer server.Close()

	cfg := &config.ProviderConfig{BaseURL: server.URL, APIKey: "tm-key", PageSize: 500}
	c := NewTicketmasterClient(cfg, testGuard(Ticketmaster, 0))

	if size, _ := c.PageLimits(); size != 200 {
		t.Errorf("page size should be capped at 200, got %d", size)
	}

	page, err := c.ListEvents(context.Background(), "K1", 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if page.TotalPages != 3 || len(page.Events) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	e := page.Events[0]
	if e.Venue == nil || e.Venue.City != "San Francisco" || !e.Date.Equal(time.Date(2026, 7, 2, 2, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected event: %+v", e)
	}
	if page.Events[1].Status != "cancelled" || page.Events[1].Venue != nil {
		t.Errorf("unexpected second event: %+v", page.Events[1])
	}
	if !page.Events[1].Date.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("local date fallback: got %v", page.Events[1].Date)
	}
}

func TestClientRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id": "K1", "name": "Wet Leg", "images": [{"url": "small", "width": 100}, {"url": "big", "width": 1000}],
			"classifications": [{"genre": {"name": "Rock"}, "subGenre": {"name": "Undefined"}}]}`))
	}))
	defer server.Close()

	c := NewTicketmasterClient(&config.ProviderConfig{BaseURL: server.URL}, testGuard(Ticketmaster, 0))
	c.http.retryBaseDelay = time.Millisecond

	a, err := c.GetAttraction(context.Background(), "K1")
	if err != nil {
		t.Fatalf("GetAttraction: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	if a.ImageURL != "big" || len(a.Genres) != 1 || a.Genres[0] != "Rock" {
		t.Errorf("unexpected attraction: %+v", a)
	}
}

func TestClientErrorsAndBreaker(t *testing.T) {
	var status, calls atomic.Int32
	status.Store(http.StatusNotFound)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte("nope"))
	}))
	defer server.Close()

	guard := testGuard(Ticketmaster, 0)
	c := NewTicketmasterClient(&config.ProviderConfig{BaseURL: server.URL}, guard)
	ctx := context.Background()

	// 404s are neutral: the breaker stays closed.
	for i := 0; i < 3; i++ {
		_, err := c.GetAttraction(ctx, "missing")
		if !IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if guard.Breaker.State() != resilience.StateClosed {
		t.Fatalf("breaker should stay closed on 404, got %s", guard.Breaker.State())
	}

	status.Store(http.StatusBadGateway)
	for i := 0; i < 2; i++ {
		_, err := c.GetAttraction(ctx, "K1")
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
			t.Fatalf("expected 502 StatusError, got %v", err)
		}
	}
	before := calls.Load()
	_, err := c.GetAttraction(ctx, "K1")
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls.Load() != before {
		t.Error("open breaker must not reach the provider")
	}
}

func TestClientQuota(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"id": "K1", "name": "A"}`))
	}))
	defer server.Close()

	c := NewTicketmasterClient(&config.ProviderConfig{BaseURL: server.URL}, testGuard(Ticketmaster, 2))
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.GetAttraction(ctx, "K1"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if _, err := c.GetAttraction(ctx, "K1"); !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("expected ErrQuotaExhausted, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestSpotifyTokenCachingAndPaging(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			t.Errorf("bad basic auth %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			t.Errorf("bad token form: %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"access_token": "tok", "token_type": "Bearer", "expires_in": 3600}`))
	})
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		_, _ = w.Write([]byte(`{"artists": {"items": [
			{"id": "x", "name": "Phoebe Bridgers Tribute"},
			{"id": "S1", "name": "phoebe bridgers", "popularity": 77, "genres": ["indie"], "followers": {"total": 1234}}
		]}}`))
	})
	mux.HandleFunc("/v1/artists/S1/albums", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "0" {
			_, _ = w.Write([]byte(`{"items": [{"id": "A1", "name": "Punisher", "release_date": "2020-06-18"}], "offset": 0, "total": 2, "next": "more"}`))
			return
		}
		_, _ = w.Write([]byte(`{"items": [{"id": "A2", "name": "Stranger in the Alps"}], "offset": 1, "total": 2, "next": ""}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := &config.ProviderConfig{BaseURL: server.URL + "/v1", AuthURL: server.URL + "/token", ClientID: "id", ClientSecret: "secret", PageSize: 1}
	c := NewSpotifyClient(cfg, testGuard(Spotify, 0))
	ctx := context.Background()

	artist, err := c.SearchArtist(ctx, "Phoebe Bridgers")
	if err != nil {
		t.Fatalf("SearchArtist: %v", err)
	}
	if artist.ID != "S1" || artist.Followers != 1234 {
		t.Errorf("unexpected artist: %+v", artist)
	}

	first, err := c.ListAlbums(ctx, "S1", 0)
	if err != nil || !first.HasMore || first.Items[0].Title != "Punisher" {
		t.Fatalf("first page: %+v, %v", first, err)
	}
	second, err := c.ListAlbums(ctx, "S1", 1)
	if err != nil || second.HasMore || second.Items[0].ID != "A2" {
		t.Fatalf("second page: %+v, %v", second, err)
	}
	if tokenCalls.Load() != 1 {
		t.Errorf("token fetched %d times, want 1", tokenCalls.Load())
	}

	if _, err := c.SearchArtist(ctx, "Nobody"); !errors.Is(err, ErrNoMatch) {
		// The stub returns the same list for every query.
		t.Errorf("expected ErrNoMatch, got %v", err)
	}
}

func TestSetlistfmSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "sf-key" {
			t.Errorf("missing api key header")
		}
		if r.URL.Query().Get("venueName") == "Unknown" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.URL.Query().Get("date"); got != "01-07-2026" {
			t.Errorf("date = %q, want 01-07-2026", got)
		}
		_, _ = w.Write([]byte(`{"setlist": [{"id": "SL1", "eventDate": "01-07-2026",
			"venue": {"name": "The Fillmore", "city": {"name": "San Francisco"}},
			"sets": {"set": [{"song": [{"name": "Intro", "tape": true}, {"name": "Kyoto"}]}, {"song": [{"name": "I Know The End"}]}]}}]}`))
	}))
	defer server.Close()

	c := NewSetlistfmClient(&config.ProviderConfig{BaseURL: server.URL, APIKey: "sf-key"}, testGuard(Setlistfm, 0))
	ctx := context.Background()
	date := time.Date(2026, 7, 1, 20, 0, 0, 0, time.UTC)

	matches, err := c.SearchSetlists(ctx, SetlistQuery{ArtistName: "Phoebe Bridgers", VenueName: "The Fillmore", Date: date})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || strings.Join(matches[0].Songs, ",") != "Kyoto,I Know The End" {
		t.Errorf("unexpected matches: %+v", matches)
	}

	none, err := c.SearchSetlists(ctx, SetlistQuery{ArtistName: "Phoebe Bridgers", VenueName: "Unknown", Date: date})
	if err != nil || len(none) != 0 {
		t.Errorf("404 should be an empty result, got %+v, %v", none, err)
	}
}

func TestStatusErrorNeutral(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusNotFound, true},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		e := &StatusError{StatusCode: tt.code}
		if got := e.BreakerNeutral(); got != tt.want {
			t.Errorf("BreakerNeutral(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
