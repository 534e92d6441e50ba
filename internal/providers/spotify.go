// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/encore/internal/config"
)

// Spotify is the provider key of the catalog provider.
const Spotify = "spotify"

// CatalogArtist is an artist profile from the catalog provider.
type CatalogArtist struct {
	ID         string
	Name       string
	ImageURL   string
	Genres     []string
	Popularity int
	Followers  int64
}

// CatalogAlbum is one release.
type CatalogAlbum struct {
	ID          string
	Title       string
	ReleaseDate string
}

// CatalogTrack is one track of a release.
type CatalogTrack struct {
	ID         string
	Title      string
	DurationMs int
	Popularity int
}

// Page is an offset page of items.
type Page[T any] struct {
	Items   []T
	Offset  int
	Total   int
	HasMore bool
}

// CatalogProvider reads artist discographies.
type CatalogProvider interface {
	Authenticate(ctx context.Context) (string, error)
	SearchArtist(ctx context.Context, name string) (*CatalogArtist, error)
	GetArtist(ctx context.Context, id string) (*CatalogArtist, error)
	ListAlbums(ctx context.Context, artistID string, offset int) (*Page[CatalogAlbum], error)
	ListAlbumTracks(ctx context.Context, albumID string, offset int) (*Page[CatalogTrack], error)
	PageLimits() (size, maxPages int)
}

// SpotifyClient uses the client-credentials flow. The access token is cached
// until shortly before it expires.
type SpotifyClient struct {
	http         *httpClient
	authURL      string
	clientID     string
	clientSecret string
	pageSize     int
	maxPages     int

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// tokenRefreshMargin renews a token this long before it expires.
const tokenRefreshMargin = time.Minute

// NewSpotifyClient creates the catalog provider client.
func NewSpotifyClient(cfg *config.ProviderConfig, guard Guard) *SpotifyClient {
	size := cfg.PageSize
	if size <= 0 || size > 50 {
		size = 50
	}
	return &SpotifyClient{
		http:         newHTTPClient(Spotify, cfg, guard),
		authURL:      cfg.AuthURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		pageSize:     size,
		maxPages:     cfg.MaxPages,
		now:          time.Now,
	}
}

// PageLimits implements CatalogProvider.
func (c *SpotifyClient) PageLimits() (int, int) { return c.pageSize, c.maxPages }

type spotifyToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Authenticate returns a valid bearer token, fetching a new one if needed.
func (c *SpotifyClient) Authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt.Add(-tokenRefreshMargin)) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	headers := http.Header{}
	headers.Set("Content-Type", "application/x-www-form-urlencoded")
	headers.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.clientID+":"+c.clientSecret)))

	var tok spotifyToken
	if err := c.http.do(ctx, request{
		op:      "authenticate",
		method:  http.MethodPost,
		url:     c.authURL,
		headers: headers,
		body:    func() io.Reader { return strings.NewReader(form.Encode()) },
	}, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%s authenticate: empty access token", Spotify)
	}

	c.token = tok.AccessToken
	c.expiresAt = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

func (c *SpotifyClient) get(ctx context.Context, op, path string, q url.Values, out any) error {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return err
	}
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)
	return c.http.do(ctx, request{op: op, url: path, query: q, headers: headers}, out)
}

type spImage struct {
	URL   string `json:"url"`
	Width int    `json:"width"`
}

type spArtist struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Genres     []string  `json:"genres"`
	Popularity int       `json:"popularity"`
	Images     []spImage `json:"images"`
	Followers  struct {
		Total int64 `json:"total"`
	} `json:"followers"`
}

func (a spArtist) toCatalog() *CatalogArtist {
	img, width := "", -1
	for _, i := range a.Images {
		if i.Width > width {
			img, width = i.URL, i.Width
		}
	}
	return &CatalogArtist{
		ID:         a.ID,
		Name:       a.Name,
		ImageURL:   img,
		Genres:     a.Genres,
		Popularity: a.Popularity,
		Followers:  a.Followers.Total,
	}
}

type spPaging[T any] struct {
	Items  []T    `json:"items"`
	Offset int    `json:"offset"`
	Total  int    `json:"total"`
	Next   string `json:"next"`
}

func toPage[S, T any](p spPaging[S], convert func(S) T) *Page[T] {
	out := &Page[T]{Offset: p.Offset, Total: p.Total, HasMore: p.Next != ""}
	for _, item := range p.Items {
		out.Items = append(out.Items, convert(item))
	}
	return out
}

// SearchArtist implements CatalogProvider. The first result whose name
// matches case-insensitively wins; otherwise ErrNoMatch.
func (c *SpotifyClient) SearchArtist(ctx context.Context, name string) (*CatalogArtist, error) {
	q := url.Values{}
	q.Set("q", name)
	q.Set("type", "artist")
	q.Set("limit", "5")

	var raw struct {
		Artists spPaging[spArtist] `json:"artists"`
	}
	if err := c.get(ctx, "search_artist", "search", q, &raw); err != nil {
		return nil, err
	}
	for _, a := range raw.Artists.Items {
		if strings.EqualFold(strings.TrimSpace(a.Name), strings.TrimSpace(name)) {
			return a.toCatalog(), nil
		}
	}
	return nil, fmt.Errorf("%s artist %q: %w", Spotify, name, ErrNoMatch)
}

// GetArtist implements CatalogProvider.
func (c *SpotifyClient) GetArtist(ctx context.Context, id string) (*CatalogArtist, error) {
	var raw spArtist
	if err := c.get(ctx, "get_artist", "artists/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, err
	}
	return raw.toCatalog(), nil
}

// ListAlbums implements CatalogProvider. Only albums and singles are listed.
func (c *SpotifyClient) ListAlbums(ctx context.Context, artistID string, offset int) (*Page[CatalogAlbum], error) {
	q := url.Values{}
	q.Set("include_groups", "album,single")
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("offset", strconv.Itoa(offset))

	type spAlbum struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		ReleaseDate string `json:"release_date"`
	}
	var raw spPaging[spAlbum]
	if err := c.get(ctx, "list_albums", "artists/"+url.PathEscape(artistID)+"/albums", q, &raw); err != nil {
		return nil, err
	}
	return toPage(raw, func(a spAlbum) CatalogAlbum {
		return CatalogAlbum{ID: a.ID, Title: a.Name, ReleaseDate: a.ReleaseDate}
	}), nil
}

// ListAlbumTracks implements CatalogProvider.
func (c *SpotifyClient) ListAlbumTracks(ctx context.Context, albumID string, offset int) (*Page[CatalogTrack], error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("offset", strconv.Itoa(offset))

	type spTrack struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		DurationMs int    `json:"duration_ms"`
		Popularity int    `json:"popularity"`
	}
	var raw spPaging[spTrack]
	if err := c.get(ctx, "list_album_tracks", "albums/"+url.PathEscape(albumID)+"/tracks", q, &raw); err != nil {
		return nil, err
	}
	return toPage(raw, func(t spTrack) CatalogTrack {
		return CatalogTrack{ID: t.ID, Title: t.Name, DurationMs: t.DurationMs, Popularity: t.Popularity}
	}), nil
}
