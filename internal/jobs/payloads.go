// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package jobs

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/encore/internal/validation"
)

// RunConfig tunes one job.
type RunConfig struct {
	Concurrency int `json:"concurrency,omitempty" validate:"omitempty,gte=1,lte=50"`
}

// ArtistImportPayload starts a full import of one attraction.
type ArtistImportPayload struct {
	ProviderAttractionID string     `json:"providerAttractionId" validate:"required,provider_id"`
	Config               *RunConfig `json:"config,omitempty"`
}

// BatchImportPayload imports many attractions.
type BatchImportPayload struct {
	ProviderAttractionIDs []string   `json:"providerAttractionIds" validate:"required,min=1,max=500,dive,provider_id"`
	Config                *RunConfig `json:"config,omitempty"`
}

// ProviderSyncPayload re-syncs one artist from one provider. An empty
// ProviderExternalID uses the id stored on the artist.
type ProviderSyncPayload struct {
	ArtistID           string     `json:"artistId" validate:"required"`
	ProviderExternalID string     `json:"providerExternalId,omitempty" validate:"omitempty,max=256"`
	Config             *RunConfig `json:"config,omitempty"`
}

// TrendingPayload narrows a trending run.
type TrendingPayload struct {
	EntityIDs        []string `json:"entityIds,omitempty" validate:"omitempty,max=10000"`
	ForceRecalculate bool     `json:"forceRecalculate,omitempty"`
}

// CleanupPayload sets the cleanup cutoff.
type CleanupPayload struct {
	OlderThanDays int `json:"olderThanDays,omitempty" validate:"omitempty,gte=1,lte=365"`
}

// HealthCheckPayload is empty.
type HealthCheckPayload struct{}

// decode unmarshals and validates payload. An empty payload decodes to the
// zero value, which is then validated.
func decode[T any](payload json.RawMessage) (T, error) {
	var v T
	if trimmed := bytes.TrimSpace(payload); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return v, fmt.Errorf("decode payload: %w", err)
		}
	}
	if err := validation.ValidateStruct(&v); err != nil {
		return v, fmt.Errorf("invalid payload: %w", err)
	}
	return v, nil
}

func (c *RunConfig) concurrency(fallback int) int {
	if c == nil || c.Concurrency <= 0 {
		return fallback
	}
	return c.Concurrency
}
