// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package providers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/tomtom215/encore/internal/config"
)

// Setlistfm is the provider key of the setlist provider.
const Setlistfm = "setlistfm"

// SetlistQuery identifies a performance.
type SetlistQuery struct {
	ArtistName string
	VenueName  string
	City       string
	Date       time.Time
}

// SetlistMatch is a setlist found for a performance.
type SetlistMatch struct {
	ID        string
	VenueName string
	City      string
	Date      time.Time
	Songs     []string // In performance order
}

// SetlistProvider finds what was played at a show.
type SetlistProvider interface {
	SearchSetlists(ctx context.Context, q SetlistQuery) ([]SetlistMatch, error)
}

// SetlistfmClient talks to the setlist.fm REST API.
type SetlistfmClient struct {
	http   *httpClient
	apiKey string
}

// NewSetlistfmClient creates the setlist provider client.
func NewSetlistfmClient(cfg *config.ProviderConfig, guard Guard) *SetlistfmClient {
	return &SetlistfmClient{http: newHTTPClient(Setlistfm, cfg, guard), apiKey: cfg.APIKey}
}

type sfSetlist struct {
	ID        string `json:"id"`
	EventDate string `json:"eventDate"` // dd-MM-yyyy
	Venue     struct {
		Name string `json:"name"`
		City struct {
			Name string `json:"name"`
		} `json:"city"`
	} `json:"venue"`
	Sets struct {
		Set []struct {
			Song []struct {
				Name string `json:"name"`
				Tape bool   `json:"tape"`
			} `json:"song"`
		} `json:"set"`
	} `json:"sets"`
}

// SearchSetlists implements SetlistProvider. A 404 means no setlist and
// yields an empty result. Tape (pre-recorded) entries are skipped.
func (c *SetlistfmClient) SearchSetlists(ctx context.Context, q SetlistQuery) ([]SetlistMatch, error) {
	params := url.Values{}
	params.Set("artistName", q.ArtistName)
	if q.VenueName != "" {
		params.Set("venueName", q.VenueName)
	}
	if q.City != "" {
		params.Set("cityName", q.City)
	}
	if !q.Date.IsZero() {
		params.Set("date", q.Date.UTC().Format("02-01-2006"))
	}
	headers := http.Header{}
	headers.Set("x-api-key", c.apiKey)

	var raw struct {
		Setlist []sfSetlist `json:"setlist"`
	}
	err := c.http.do(ctx, request{op: "search_setlists", url: "search/setlists", query: params, headers: headers}, &raw)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]SetlistMatch, 0, len(raw.Setlist))
	for _, s := range raw.Setlist {
		m := SetlistMatch{ID: s.ID, VenueName: s.Venue.Name, City: s.Venue.City.Name}
		if t, err := time.Parse("02-01-2006", s.EventDate); err == nil {
			m.Date = t
		}
		for _, set := range s.Sets.Set {
			for _, song := range set.Song {
				if song.Name != "" && !song.Tape {
					m.Songs = append(m.Songs, song.Name)
				}
			}
		}
		out = append(out, m)
	}
	return out, nil
}
