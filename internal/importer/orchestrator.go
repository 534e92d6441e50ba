// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/encore/internal/config"
	"github.com/tomtom215/encore/internal/ingest"
	"github.com/tomtom215/encore/internal/logging"
	"github.com/tomtom215/encore/internal/metrics"
	"github.com/tomtom215/encore/internal/models"
	"github.com/tomtom215/encore/internal/progress"
	"github.com/tomtom215/encore/internal/providers"
	"github.com/tomtom215/encore/internal/store"
)

// Stores is the storage an import writes through.
type Stores interface {
	store.ArtistStore
	store.VenueStore
	store.ShowStore
	store.CatalogStore
	store.SetlistStore
}

// Ingester is one ingest service.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (ingest.Summary, error)
}

// Deps are the orchestrator's collaborators. Ingesters left nil are built
// from the provider set; a nil Catalog or Setlists provider skips that stage.
type Deps struct {
	Store         Stores
	Shows         providers.ShowProvider
	Catalog       providers.CatalogProvider
	Setlists      providers.SetlistProvider
	Tracker       *progress.Tracker
	Config        config.ImportConfig
	ShowIngest    Ingester
	CatalogIngest Ingester
	SetlistIngest Ingester
}

// Orchestrator runs per-artist imports.
type Orchestrator struct {
	store         Stores
	shows         providers.ShowProvider
	catalog       providers.CatalogProvider
	tracker       *progress.Tracker
	cfg           config.ImportConfig
	showIngest    Ingester
	catalogIngest Ingester
	setlistIngest Ingester
	now           func() time.Time
}

// New creates an orchestrator.
func New(d Deps) *Orchestrator {
	o := &Orchestrator{
		store:         d.Store,
		shows:         d.Shows,
		catalog:       d.Catalog,
		tracker:       d.Tracker,
		cfg:           d.Config,
		showIngest:    d.ShowIngest,
		catalogIngest: d.CatalogIngest,
		setlistIngest: d.SetlistIngest,
		now:           time.Now,
	}
	if o.tracker == nil {
		o.tracker = progress.NewTracker(progress.NewMemoryStore())
	}
	if o.showIngest == nil && d.Shows != nil {
		o.showIngest = ingest.NewShowIngest(d.Shows, d.Store)
	}
	if o.catalogIngest == nil && d.Catalog != nil {
		o.catalogIngest = ingest.NewCatalogIngest(d.Catalog, d.Store)
	}
	if o.setlistIngest == nil && d.Setlists != nil {
		o.setlistIngest = ingest.NewSetlistIngest(d.Setlists, d.Store, d.Config.SetlistShowLimit)
	}
	return o
}

// Tracker exposes the progress tracker.
func (o *Orchestrator) Tracker() *progress.Tracker { return o.tracker }

// ImportHandle identifies the artist an import was initiated for.
type ImportHandle struct {
	ArtistID string `json:"artistId"`
	Slug     string `json:"slug"`
	Created  bool   `json:"created"`
}

// InitiateImport returns the artist linked to attractionID, creating it from
// the show provider's attraction when unknown. The catalog id is resolved by
// name on a best-effort basis.
func (o *Orchestrator) InitiateImport(ctx context.Context, attractionID string) (ImportHandle, error) {
	if attractionID == "" {
		return ImportHandle{}, errors.New("attraction id is required")
	}
	if existing, err := o.store.GetArtistByShowProviderID(ctx, attractionID); err == nil {
		return ImportHandle{ArtistID: existing.ID, Slug: existing.Slug}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return ImportHandle{}, fmt.Errorf("look up artist: %w", err)
	}
	if o.shows == nil {
		return ImportHandle{}, errors.New("no show provider configured")
	}

	attraction, err := o.shows.GetAttraction(ctx, attractionID)
	if err != nil {
		return ImportHandle{}, fmt.Errorf("fetch attraction %s: %w", attractionID, err)
	}

	artist := &models.Artist{
		Name:           attraction.Name,
		Slug:           models.Slugify(attraction.Name),
		ShowProviderID: attractionID,
		ImageURL:       attraction.ImageURL,
		Genres:         attraction.Genres,
		ImportStatus:   models.ImportPending,
	}
	if o.catalog != nil {
		if match, err := o.catalog.SearchArtist(ctx, attraction.Name); err == nil {
			applyCatalogProfile(artist, match)
		} else if !errors.Is(err, providers.ErrNoMatch) {
			logging.Ctx(ctx).Warn().Err(err).Str("artist", attraction.Name).Msg("Catalog lookup failed")
		}
	}

	return o.createArtist(ctx, artist)
}

// createArtist inserts a, treating a show-provider id conflict as the artist
// already existing. A slug taken by a different artist gets the provider id
// appended.
func (o *Orchestrator) createArtist(ctx context.Context, a *models.Artist) (ImportHandle, error) {
	for attempt := 0; attempt < 2; attempt++ {
		err := o.store.CreateArtist(ctx, a)
		if err == nil {
			logging.Ctx(ctx).Info().Str("artist_id", a.ID).Str("artist", a.Name).Msg("Artist created")
			return ImportHandle{ArtistID: a.ID, Slug: a.Slug, Created: true}, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return ImportHandle{}, fmt.Errorf("create artist: %w", err)
		}
		existing, rerr := o.store.GetArtistByShowProviderID(ctx, a.ShowProviderID)
		if rerr == nil {
			return ImportHandle{ArtistID: existing.ID, Slug: existing.Slug}, nil
		}
		if !errors.Is(rerr, store.ErrNotFound) {
			return ImportHandle{}, fmt.Errorf("re-read artist after conflict: %w", rerr)
		}
		a.Slug = models.Slugify(a.Name + " " + a.ShowProviderID)
	}
	return ImportHandle{}, fmt.Errorf("create artist %q: %w", a.Name, store.ErrConflict)
}

func applyCatalogProfile(a *models.Artist, c *providers.CatalogArtist) {
	a.CatalogProviderID = c.ID
	a.Popularity = c.Popularity
	a.Followers = c.Followers
	if c.ImageURL != "" {
		a.ImageURL = c.ImageURL
	}
	if len(c.Genres) > 0 {
		a.Genres = c.Genres
	}
}

// Stats counts what a full import added.
type Stats struct {
	AlbumsImported   int `json:"albumsImported"`
	SongsImported    int `json:"songsImported"`
	ShowsImported    int `json:"showsImported"`
	VenuesImported   int `json:"venuesImported"`
	SetlistsImported int `json:"setlistsImported"`
	Errors           int `json:"errors"`
}

// FullImportResult is the outcome of RunFullImport.
type FullImportResult struct {
	ArtistID string `json:"artistId"`
	Success  bool   `json:"success"`
	Stats    Stats  `json:"stats"`
	Error    string `json:"error,omitempty"`
}

// stage is one ingest run mapped onto progress steps.
type stage struct {
	name     string
	steps    []progress.Step
	ingester Ingester
	key      string
	counts   func(ingest.Summary) []int
	apply    func(*Stats, ingest.Summary)
}

// RunFullImport refreshes the artist and then runs the catalog, show and
// setlist ingests, recording each on the progress tracker. A failed artist
// step aborts; a failed ingest marks only its own steps and later stages
// still run.
func (o *Orchestrator) RunFullImport(ctx context.Context, artistID string) FullImportResult {
	start := o.now()
	res := FullImportResult{ArtistID: artistID}
	log := logging.Ctx(ctx).With().Str("artist_id", artistID).Logger()

	artist, err := o.store.GetArtist(ctx, artistID)
	name := ""
	if artist != nil {
		name = artist.Name
	}
	if _, perr := o.tracker.StartSync(ctx, artistID, name); perr != nil {
		log.Warn().Err(perr).Msg("Failed to start import progress")
	}
	o.step(ctx, artistID, progress.StepArtist, progress.StatusSyncing, nil)
	if err != nil {
		return o.abort(ctx, res, fmt.Errorf("resolve artist: %w", err))
	}
	if err := o.store.SetArtistImportStatus(ctx, artistID, models.ImportImporting, nil); err != nil {
		return o.abort(ctx, res, fmt.Errorf("mark artist importing: %w", err))
	}
	o.refreshProfile(ctx, artist)
	o.step(ctx, artistID, progress.StepArtist, progress.StatusCompleted, progress.Count(1))

	var failures []error
	for _, st := range o.stages(artist) {
		if err := o.runStage(ctx, artistID, st, &res.Stats); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", st.name, err))
		}
	}

	res.Success = len(failures) == 0
	status := models.ImportCompleted
	if !res.Success {
		status = models.ImportFailed
		res.Error = errors.Join(failures...).Error()
	}
	synced := o.now()
	if err := o.store.SetArtistImportStatus(ctx, artistID, status, &synced); err != nil {
		log.Error().Err(err).Msg("Failed to record import status")
		res.Success = false
		if res.Error == "" {
			res.Error = err.Error()
		}
	}
	metrics.RecordArtistImport(res.Success)

	log.Info().
		Bool("success", res.Success).
		Int("albums", res.Stats.AlbumsImported).
		Int("songs", res.Stats.SongsImported).
		Int("shows", res.Stats.ShowsImported).
		Int("venues", res.Stats.VenuesImported).
		Int("setlists", res.Stats.SetlistsImported).
		Int("errors", res.Stats.Errors).
		Dur("duration", o.now().Sub(start)).
		Msg("Artist import finished")
	return res
}

func (o *Orchestrator) stages(a *models.Artist) []stage {
	return []stage{
		{
			name:     "catalog",
			steps:    []progress.Step{progress.StepAlbums, progress.StepSongs},
			ingester: o.catalogIngest,
			key:      a.CatalogProviderID,
			counts:   func(s ingest.Summary) []int { return []int{s.NewAlbums(), s.NewSongs()} },
			apply: func(st *Stats, s ingest.Summary) {
				st.AlbumsImported += s.NewAlbums()
				st.SongsImported += s.NewSongs()
			},
		},
		{
			name:     "shows",
			steps:    []progress.Step{progress.StepShows},
			ingester: o.showIngest,
			key:      a.ShowProviderID,
			counts:   func(s ingest.Summary) []int { return []int{s.NewShows()} },
			apply: func(st *Stats, s ingest.Summary) {
				st.ShowsImported += s.NewShows()
				st.VenuesImported += s.NewVenues()
			},
		},
		{
			name:     "setlists",
			steps:    []progress.Step{progress.StepSetlists},
			ingester: o.setlistIngest,
			key:      a.Name,
			counts:   func(s ingest.Summary) []int { return []int{s.NewSetlists()} },
			apply: func(st *Stats, s ingest.Summary) {
				st.SetlistsImported += s.NewSetlists()
				st.SongsImported += s.NewSongs()
			},
		},
	}
}

// runStage runs one ingest. With no ingester or no provider key the stage's
// steps complete with count 0.
func (o *Orchestrator) runStage(ctx context.Context, artistID string, st stage, stats *Stats) error {
	if st.ingester == nil || st.key == "" {
		for _, s := range st.steps {
			o.step(ctx, artistID, s, progress.StatusCompleted, progress.Count(0))
		}
		return nil
	}

	for _, s := range st.steps {
		o.step(ctx, artistID, s, progress.StatusSyncing, nil)
	}
	concurrency := 1
	if st.name == "catalog" {
		concurrency = o.cfg.TrackConcurrency
	}
	sum, err := st.ingester.Ingest(ctx, ingest.Request{OwnerEntityID: artistID, ProviderKey: st.key, Concurrency: concurrency})
	st.apply(stats, sum)
	stats.Errors += sum.Errors
	if err != nil {
		stats.Errors++
		for _, s := range st.steps {
			if ferr := o.tracker.FailStep(ctx, artistID, s, err); ferr != nil {
				logging.Ctx(ctx).Warn().Err(ferr).Str("step", string(s)).Msg("Failed to record step failure")
			}
		}
		return err
	}
	if sum.Truncated {
		logging.Ctx(ctx).Warn().Str("artist_id", artistID).Str("stage", st.name).Msg("Ingest truncated by provider quota")
	}
	for i, n := range st.counts(sum) {
		o.step(ctx, artistID, st.steps[i], progress.StatusCompleted, progress.Count(n))
	}
	return nil
}

// refreshProfile updates the artist from the catalog provider. Failures are
// logged; the artist record itself is already resolved.
func (o *Orchestrator) refreshProfile(ctx context.Context, a *models.Artist) {
	if o.catalog == nil {
		return
	}
	var (
		c   *providers.CatalogArtist
		err error
	)
	if a.CatalogProviderID != "" {
		c, err = o.catalog.GetArtist(ctx, a.CatalogProviderID)
	} else {
		c, err = o.catalog.SearchArtist(ctx, a.Name)
	}
	if err != nil {
		if !errors.Is(err, providers.ErrNoMatch) {
			logging.Ctx(ctx).Warn().Err(err).Str("artist_id", a.ID).Msg("Artist profile refresh failed")
		}
		return
	}
	applyCatalogProfile(a, c)
	if err := o.store.UpdateArtistProfile(ctx, a); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("artist_id", a.ID).Msg("Failed to store artist profile")
	}
}

// abort fails the artist step and the whole record.
func (o *Orchestrator) abort(ctx context.Context, res FullImportResult, err error) FullImportResult {
	res.Success = false
	res.Error = err.Error()
	res.Stats.Errors++
	if ferr := o.tracker.FailStep(ctx, res.ArtistID, progress.StepArtist, err); ferr != nil {
		logging.Ctx(ctx).Warn().Err(ferr).Msg("Failed to record step failure")
	}
	if serr := o.tracker.SetError(ctx, res.ArtistID, err.Error()); serr != nil {
		logging.Ctx(ctx).Warn().Err(serr).Msg("Failed to record import error")
	}
	if !errors.Is(err, store.ErrNotFound) {
		synced := o.now()
		if serr := o.store.SetArtistImportStatus(ctx, res.ArtistID, models.ImportFailed, &synced); serr != nil {
			logging.Ctx(ctx).Warn().Err(serr).Msg("Failed to record import status")
		}
	}
	metrics.RecordArtistImport(false)
	logging.Ctx(ctx).Error().Err(err).Str("artist_id", res.ArtistID).Msg("Artist import aborted")
	return res
}

func (o *Orchestrator) step(ctx context.Context, artistID string, s progress.Step, status progress.Status, count *int) {
	if err := o.tracker.UpdateStepStatus(ctx, artistID, s, status, count); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("step", string(s)).Msg("Failed to update import progress")
	}
}
