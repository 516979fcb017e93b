// Package api implements the palacebot HTTP API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// tokenAuth checks request credentials against the configured token.
// A disabled tokenAuth accepts everything.
type tokenAuth struct {
	enabled bool
	token   string
}

func (a tokenAuth) accepts(candidate string) bool {
	if !a.enabled {
		return true
	}
	return candidate != "" && subtle.ConstantTimeCompare([]byte(candidate), []byte(a.token)) == 1
}

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry a valid "Authorization: Bearer <token>" header.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	auth := tokenAuth{enabled: enabled, token: token}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !auth.accepts(bearer) || (auth.enabled && !ok) {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SlackAuthMiddleware validates the verification token Slack sends in the
// form body of slash commands, which cannot carry an Authorization header.
func SlackAuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	auth := tokenAuth{enabled: enabled, token: token}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.enabled {
				next.ServeHTTP(w, r)
				return
			}
			if err := r.ParseForm(); err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody("invalid form body"))
				return
			}
			if !auth.accepts(r.PostForm.Get("token")) {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
