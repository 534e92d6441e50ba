// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

// Package main is the entry point for the Encore ingestion engine.
//
// Encore imports artists, shows, venues, catalogs and setlists from upstream
// providers (Ticketmaster, Spotify, Setlist.fm) into a local store and keeps
// trending scores for artists, shows and songs fresh.
//
// # Commands
//
//	encore serve              run the trigger API, scheduler and state GC
//	encore run <pipeline>     run one pipeline (artists, shows, trending, maintenance, all)
//	encore job <type> [json]  run one job with an optional JSON payload
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (CRON_SECRET, TICKETMASTER_API_KEY, DUCKDB_PATH, ...)
//   - Config file (--config, CONFIG_PATH or config.yaml)
//   - Built-in defaults
//
// CRON_SECRET is always required. Providers without credentials are left
// out and the jobs that need them report that they are not configured.
//
// # Signal Handling
//
// serve shuts down gracefully on SIGINT and SIGTERM: the HTTP server drains
// in-flight requests, then the state and database are closed.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/encore/internal/config"
	"github.com/tomtom215/encore/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "encore",
		Short:         "Concert discovery ingestion and trending engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")

	cmd.AddCommand(newServeCmd(opts), newRunCmd(opts), newJobCmd(opts))
	return cmd
}

// loadConfig loads and validates the configuration, then initializes logging
// from it.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	return cfg, nil
}
