// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package models

import (
	"testing"
	"time"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Rolling Stones", "the-rolling-stones"},
		{"  AC/DC  ", "ac-dc"},
		{"Guns N' Roses", "guns-n-roses"},
		{"---Hello---World---", "hello-world"},
		{"Sigur Rós", "sigur-r-s"},
		{"!!!", ""},
		{"", ""},
		{"Blink-182", "blink-182"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestShowSlug(t *testing.T) {
	date := time.Date(2026, 7, 4, 20, 0, 0, 0, time.UTC)
	if got := ShowSlug("Madison Square Garden", date); got != "madison-square-garden-2026-07-04" {
		t.Errorf("ShowSlug = %q", got)
	}
	if got := ShowSlug("", date); got != "2026-07-04" {
		t.Errorf("ShowSlug without name = %q", got)
	}
}
