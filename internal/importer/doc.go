// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

/*
Package importer orchestrates per-artist imports.

An import has two phases. InitiateImport resolves or creates the canonical
artist for a show-provider attraction id. RunFullImport then walks the
progress steps:

	artist    resolve the record and refresh its catalog profile (fatal on failure)
	albums    catalog ingest
	songs     catalog ingest (same run as albums)
	shows     show ingest
	setlists  setlist ingest for past shows

Each ingest stage is independent: a failure marks its own steps failed and
records the error on the progress record, and the next stage still runs. The
artist's import status and last sync time are written at the end.

RunBatchImport fans out over many attraction ids with errgroup, at most
MaxBatchConcurrency at a time. Each id owns one result slot, so one id's
failure or panic never touches another.
*/
package importer
