// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package providers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrQuotaExhausted is returned without calling the provider when the
	// provider's request budget for the current window is spent.
	ErrQuotaExhausted = errors.New("provider quota exhausted")

	// ErrNoMatch is returned when a search finds nothing usable.
	ErrNoMatch = errors.New("no matching provider record")
)

// StatusError is a non-2xx provider response.
type StatusError struct {
	Provider   string
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Provider, e.Operation, e.StatusCode, e.Body)
}

// BreakerNeutral reports client errors that say nothing about the provider's
// health. 429 and 5xx count against the breaker.
func (e *StatusError) BreakerNeutral() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

// NotFound reports a 404.
func (e *StatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsNotFound reports whether err is a provider 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.NotFound()
}

// maxErrorBodySize limits how much of an error response is kept.
const maxErrorBodySize = 64 * 1024

// readBodyForError reads at most maxErrorBodySize bytes for error reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// errorReason classifies err for the provider error metric.
func errorReason(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &se):
		switch {
		case se.StatusCode == http.StatusTooManyRequests:
			return "rate_limited"
		case se.StatusCode >= 500:
			return "server_error"
		default:
			return "client_error"
		}
	case errors.Is(err, ErrQuotaExhausted):
		return "quota"
	default:
		return "transport"
	}
}
