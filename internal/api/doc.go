// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

/*
Package api serves Encore's trigger endpoints on a chi router.

Routes:

	GET|POST /api/cron?job=<pipeline>     run a pipeline (artists, shows, trending, maintenance, all)
	POST     /api/jobs/{type}              run one job with the JSON request body as payload
	GET      /api/imports/{artistID}/progress
	GET      /api/breakers
	GET      /health/live
	GET      /metrics

Everything under /api requires "Authorization: Bearer <secret>". The token is
compared with the configured secret in constant time; when AcceptJWT is set
an HS256 token signed with the secret is accepted too. A missing or bad token
gets 401 {"success":false,"error":"unauthorized"} and nothing runs.

All routes are rate limited per client IP with go-chi/httprate.
*/
package api
