// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package providers

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/encore/internal/config"
)

// Ticketmaster is the provider key of the show provider.
const Ticketmaster = "ticketmaster"

// Attraction is a performer as the show provider knows it.
type Attraction struct {
	ID       string
	Name     string
	ImageURL string
	Genres   []string
}

// EventVenue is the venue of an event.
type EventVenue struct {
	ID      string
	Name    string
	City    string
	State   string
	Country string
}

// Event is one scheduled show.
type Event struct {
	ID        string
	Name      string
	Date      time.Time
	Status    string
	TicketURL string
	Venue     *EventVenue
}

// EventPage is one page of events. Page is zero-based.
type EventPage struct {
	Events     []Event
	Page       int
	TotalPages int
}

// ShowProvider lists performers' scheduled shows.
type ShowProvider interface {
	GetAttraction(ctx context.Context, id string) (*Attraction, error)
	ListEvents(ctx context.Context, attractionID string, page int) (*EventPage, error)
	PageLimits() (size, maxPages int)
}

// TicketmasterClient talks to the Discovery API.
type TicketmasterClient struct {
	http     *httpClient
	apiKey   string
	pageSize int
	maxPages int
}

// NewTicketmasterClient creates the show provider client.
func NewTicketmasterClient(cfg *config.ProviderConfig, guard Guard) *TicketmasterClient {
	size := cfg.PageSize
	if size <= 0 || size > 200 {
		size = 200
	}
	return &TicketmasterClient{
		http:     newHTTPClient(Ticketmaster, cfg, guard),
		apiKey:   cfg.APIKey,
		pageSize: size,
		maxPages: cfg.MaxPages,
	}
}

// PageLimits implements ShowProvider.
func (c *TicketmasterClient) PageLimits() (int, int) { return c.pageSize, c.maxPages }

type tmImage struct {
	URL   string `json:"url"`
	Width int    `json:"width"`
	Ratio string `json:"ratio"`
}

type tmClassification struct {
	Genre struct {
		Name string `json:"name"`
	} `json:"genre"`
	SubGenre struct {
		Name string `json:"name"`
	} `json:"subGenre"`
}

type tmAttraction struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Images          []tmImage          `json:"images"`
	Classifications []tmClassification `json:"classifications"`
}

type tmVenue struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	State struct {
		StateCode string `json:"stateCode"`
	} `json:"state"`
	Country struct {
		CountryCode string `json:"countryCode"`
	} `json:"country"`
}

type tmEvent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Dates struct {
		Start struct {
			LocalDate string `json:"localDate"`
			DateTime  string `json:"dateTime"`
		} `json:"start"`
		Status struct {
			Code string `json:"code"`
		} `json:"status"`
	} `json:"dates"`
	Embedded struct {
		Venues []tmVenue `json:"venues"`
	} `json:"_embedded"`
}

type tmEventsResponse struct {
	Embedded struct {
		Events []tmEvent `json:"events"`
	} `json:"_embedded"`
	Page struct {
		Number     int `json:"number"`
		TotalPages int `json:"totalPages"`
	} `json:"page"`
}

func (c *TicketmasterClient) query() url.Values {
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	return q
}

// GetAttraction implements ShowProvider.
func (c *TicketmasterClient) GetAttraction(ctx context.Context, id string) (*Attraction, error) {
	var raw tmAttraction
	if err := c.http.do(ctx, request{
		op:    "get_attraction",
		url:   "attractions/" + url.PathEscape(id) + ".json",
		query: c.query(),
	}, &raw); err != nil {
		return nil, err
	}

	a := &Attraction{ID: raw.ID, Name: raw.Name, ImageURL: widestImage(raw.Images)}
	seen := map[string]bool{}
	for _, cl := range raw.Classifications {
		for _, g := range []string{cl.Genre.Name, cl.SubGenre.Name} {
			if g != "" && g != "Undefined" && !seen[g] {
				seen[g] = true
				a.Genres = append(a.Genres, g)
			}
		}
	}
	return a, nil
}

// ListEvents implements ShowProvider.
func (c *TicketmasterClient) ListEvents(ctx context.Context, attractionID string, page int) (*EventPage, error) {
	q := c.query()
	q.Set("attractionId", attractionID)
	q.Set("size", strconv.Itoa(c.pageSize))
	q.Set("page", strconv.Itoa(page))
	q.Set("sort", "date,asc")

	var raw tmEventsResponse
	if err := c.http.do(ctx, request{op: "list_events", url: "events.json", query: q}, &raw); err != nil {
		return nil, err
	}

	out := &EventPage{Page: raw.Page.Number, TotalPages: raw.Page.TotalPages}
	for _, e := range raw.Embedded.Events {
		ev := Event{ID: e.ID, Name: e.Name, TicketURL: e.URL, Status: showStatus(e.Dates.Status.Code)}
		ev.Date = parseEventDate(e.Dates.Start.DateTime, e.Dates.Start.LocalDate)
		if len(e.Embedded.Venues) > 0 {
			v := e.Embedded.Venues[0]
			ev.Venue = &EventVenue{
				ID:      v.ID,
				Name:    v.Name,
				City:    v.City.Name,
				State:   v.State.StateCode,
				Country: v.Country.CountryCode,
			}
		}
		out.Events = append(out.Events, ev)
	}
	return out, nil
}

func widestImage(images []tmImage) string {
	best, width := "", -1
	for _, img := range images {
		if img.Width > width {
			best, width = img.URL, img.Width
		}
	}
	return best
}

// parseEventDate prefers the full timestamp and falls back to the local date at midnight UTC.
func parseEventDate(dateTime, localDate string) time.Time {
	if t, err := time.Parse(time.RFC3339, dateTime); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02", localDate); err == nil {
		return t
	}
	return time.Time{}
}

func showStatus(code string) string {
	switch code {
	case "cancelled", "canceled":
		return "cancelled"
	case "postponed", "rescheduled":
		return "postponed"
	default:
		return "upcoming"
	}
}
