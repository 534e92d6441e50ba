// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

// memoryEnv configures an app that touches neither disk nor network.
func memoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("CRON_SECRET", "test-secret-0123456789")
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("STATE_BACKEND", "memory")
	t.Setenv("EVENTS_BACKEND", "none")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("TICKETMASTER_API_KEY", "")
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SETLISTFM_API_KEY", "")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"serve", "run", "job"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
	if cmd.PersistentFlags().Lookup("config") == nil {
		t.Error("--config flag not registered")
	}
}

func TestArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown pipeline", []string{"run", "weekly"}, "unknown pipeline"},
		{"missing pipeline", []string{"run"}, "accepts 1 arg"},
		{"unknown job", []string{"job", "reindex"}, "unknown job type"},
		{"bad payload", []string{"job", "trending", "{"}, "not valid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			memoryEnv(t)
			_, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestRunTrendingPipeline(t *testing.T) {
	memoryEnv(t)
	out, err := execute(t, "run", "trending")
	if err != nil {
		t.Fatalf("run trending: %v\n%s", err, out)
	}
	for _, key := range []string{`"success": true`, `"timestamp"`, `"results"`, `"totalDuration"`} {
		if !strings.Contains(out, key) {
			t.Errorf("output missing %s:\n%s", key, out)
		}
	}
}

func TestJobHealthCheck(t *testing.T) {
	memoryEnv(t)
	out, err := execute(t, "job", "health-check")
	if err != nil {
		t.Fatalf("job health-check: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"message": "healthy"`) {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestJobWithoutProviderFails(t *testing.T) {
	memoryEnv(t)
	out, err := execute(t, "job", "artist-import", `{"providerAttractionId":"K8vZ9171oZ7"}`)
	if !errors.Is(err, errRunFailed) {
		t.Fatalf("error = %v, want errRunFailed", err)
	}
	if !strings.Contains(out, "artist import is not configured") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestMissingSecretFailsToLoad(t *testing.T) {
	memoryEnv(t)
	t.Setenv("CRON_SECRET", "")
	if _, err := execute(t, "run", "trending"); err == nil || !strings.Contains(err.Error(), "CRON_SECRET") {
		t.Fatalf("error = %v, want CRON_SECRET validation failure", err)
	}
}
