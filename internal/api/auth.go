// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/encore/internal/logging"
)

// SecretAuth guards the trigger routes with a shared secret.
type SecretAuth struct {
	secret    []byte
	acceptJWT bool
}

// NewSecretAuth creates the guard. An empty secret rejects every request.
func NewSecretAuth(secret string, acceptJWT bool) *SecretAuth {
	return &SecretAuth{secret: []byte(secret), acceptJWT: acceptJWT}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Valid reports whether token matches the secret or, when enabled, is an
// HS256 JWT signed with it.
func (a *SecretAuth) Valid(token string) bool {
	if len(a.secret) == 0 || token == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(token), a.secret) == 1 {
		return true
	}
	if !a.acceptJWT || strings.Count(token, ".") != 2 {
		return false
	}
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	return err == nil && parsed.Valid
}

// Middleware rejects requests without a valid bearer token.
func (a *SecretAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Valid(bearerToken(r)) {
			logging.Ctx(r.Context()).Warn().
				Str("path", sanitizeLogValue(r.URL.Path)).
				Str("remote", r.RemoteAddr).
				Msg("Rejected unauthorized trigger request")
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
