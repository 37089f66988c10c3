// Package middleware contains HTTP middleware for the API server.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"ocrplane/pkg/api"
)

// usernameKey is the context key for the authenticated username.
type usernameKey struct{}

// TokenValidator verifies a bearer token and returns the subject it was
// issued to.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// AuthMiddleware validates the Authorization header on every request it
// wraps and stores the authenticated username in the request context.
func AuthMiddleware(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "Not authenticated")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w, "Invalid authorization header")
				return
			}

			username, err := tokens.Validate(parts[1])
			if err != nil {
				unauthorized(w, "Could not validate credentials")
				return
			}

			ctx := NewContextWithUsername(r.Context(), username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// unauthorized writes the 401 challenge the bearer scheme requires.
func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(api.ErrorResponse{
		Error: message,
		Code:  api.ReasonAuthentication,
	})
}

// NewContextWithUsername returns a context carrying the authenticated username.
func NewContextWithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey{}, username)
}

// UsernameFromContext extracts the authenticated username from the context.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameKey{}).(string)
	return username, ok
}
