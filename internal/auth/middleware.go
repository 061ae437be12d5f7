// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package auth guards write routes with a static bearer token.
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// ContextKey is the type for context keys
type ContextKey string

// TokenKey is the context key for the accepted token
const TokenKey ContextKey = "token"

// Middleware provides HTTP middleware for authentication
type Middleware struct {
	token string
}

// NewMiddleware creates a new auth middleware. An empty token disables the check.
func NewMiddleware(token string) *Middleware {
	return &Middleware{
		token: token,
	}
}

// Enabled reports whether a token is required
func (m *Middleware) Enabled() bool {
	return m.token != ""
}

// RequireAuth is middleware that validates the bearer token
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			unauthorized(w, "missing token")
			return
		}
		if !m.Valid(token) {
			unauthorized(w, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), TokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Valid compares token against the configured one in constant time
func (m *Middleware) Valid(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) == 1
}

func unauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="pandora"`)
	http.Error(w, "Unauthorized: "+reason, http.StatusUnauthorized)
}

// extractToken extracts the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return strings.TrimSpace(parts[1])
		}
	}

	// Check query parameter as fallback
	return r.URL.Query().Get("access_token")
}

// GetTokenFromContext extracts the token from request context
func GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}
