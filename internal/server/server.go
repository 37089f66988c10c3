// Package server assembles the HTTP API: routes, middleware and the
// server lifecycle.
package server

import (
	"context"
	"net/http"
	"time"

	"ocrplane/internal/server/handlers"
	"ocrplane/internal/server/middleware"
)

// Server is the HTTP server for the OCR API.
type Server struct {
	httpServer *http.Server
}

// New creates the API server. metrics serves the Prometheus exposition
// endpoint and may be nil to disable it.
func New(addr string, cfg handlers.Config, metrics http.Handler) *Server {
	h := handlers.New(cfg)
	authMW := middleware.AuthMiddleware(cfg.Tokens)

	mux := http.NewServeMux()

	// Public endpoints
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /health", h.Healthz)
	mux.HandleFunc("POST /token", h.Login)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	// Authenticated apis
	mux.Handle("GET /users/me", authMW(http.HandlerFunc(h.Me)))
	mux.Handle("POST /ocr/upload", authMW(http.HandlerFunc(h.Upload)))
	mux.Handle("GET /ocr/status/{id}", authMW(http.HandlerFunc(h.JobStatus)))
	mux.Handle("GET /ocr/result/{id}", authMW(http.HandlerFunc(h.JobResult)))

	// Request tagging and CORS wrap the whole mux so preflight requests
	// are answered before routing.
	root := middleware.RequestID(middleware.CORS(mux))

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: root,
			// Uploads stream at client speed, so there is no whole-request
			// read timeout; the header read and idle windows are bounded.
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
