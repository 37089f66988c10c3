package handlers

import (
	"fmt"
	"net/http"
	"time"

	"ocrplane/pkg/api"
)

// Root is the unauthenticated welcome endpoint.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	h.respondJson(w, http.StatusOK, api.MessageResponse{
		Message: fmt.Sprintf("Welcome to the %s service", h.title),
	})
}

// Healthz is a liveness probe.
// It returns 200 OK if the server is running.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	h.respondJson(w, http.StatusOK, api.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	})
}
