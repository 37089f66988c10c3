package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"ocrplane/internal/logger"
)

// requestIDHeader is propagated from the client when present so callers
// can correlate retries with server logs.
const requestIDHeader = "X-Request-ID"

// RequestID tags every request with an ID, echoes it in the response and
// stores it in the context for log correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := logger.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
