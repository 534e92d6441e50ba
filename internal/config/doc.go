// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

/*
Package config loads and validates Encore's configuration.

Configuration is layered with Koanf v2: struct defaults, then an optional
YAML file (CONFIG_PATH, ./config.yaml or /etc/encore/config.yaml), then
environment variables. Only the environment variables listed in
envMappings are read.

# Sections

  - server: trigger HTTP listener and per-IP rate limit
  - trigger: CRON_SECRET shared secret (required, at least 16 characters)
  - database: duckdb or memory storage adapter
  - state: badger or memory backend for limiter windows and import progress
  - providers: ticketmaster, spotify and setlistfm clients, each with
    pacing, quota and an optional breaker override
  - breakers: default circuit breaker settings
  - import, trending: orchestrator and calculator tuning
  - scheduler: optional in-process cron expressions per pipeline
  - events: job-result publisher (none, channel or nats)

Durations accept Go duration strings ("90s", "4h").
*/
package config
