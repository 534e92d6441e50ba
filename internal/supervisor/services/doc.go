// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

// Package services adapts Encore components to suture.Service.
//
// HTTPServerService turns http.Server's ListenAndServe/Shutdown pair into a
// context-aware Serve. StateGCService runs BadgerDB value log GC on an
// interval. Both implement fmt.Stringer so suture logs them by name.
package services
