// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

// Package models defines Encore's canonical entities and trending inputs.
package models

import (
	"strings"
	"time"
)

// Slugify lower-cases s, collapses every run of characters outside [a-z0-9]
// into a single '-', and trims leading and trailing '-'.
//
//	Slugify("  The Rolling Stones!! ") == "the-rolling-stones"
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// ShowSlug is the slug for a show on a given date.
func ShowSlug(name string, date time.Time) string {
	base := Slugify(name)
	day := date.UTC().Format("2006-01-02")
	if base == "" {
		return day
	}
	return base + "-" + day
}
