// Package handlers contains HTTP handlers for the OCR job API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ocrplane/internal/auth"
	"ocrplane/internal/preflight"
	"ocrplane/internal/store"
	"ocrplane/internal/workspace"
	"ocrplane/pkg/api"
)

// Dispatcher hands accepted jobs to the processing pool.
type Dispatcher interface {
	Enqueue(ctx context.Context, jobID uuid.UUID) error
}

// Config carries handler dependencies and the upload policy.
type Config struct {
	Title       string
	Registry    *store.Registry
	Credentials *auth.CredentialStore
	Tokens      *auth.TokenService
	Workspace   *workspace.Manager
	Dispatcher  Dispatcher

	TokenTTL          time.Duration
	MaxFileSizeMB     int64
	AllowedExtensions []string
	PDFPreflight      bool

	// Inspect overrides the PDF preflight check. Left nil it uses
	// preflight.Inspect.
	Inspect func(path string) (preflight.Info, error)

	Logger *slog.Logger
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	title      string
	registry   *store.Registry
	creds      *auth.CredentialStore
	tokens     *auth.TokenService
	ws         *workspace.Manager
	dispatcher Dispatcher

	tokenTTL     time.Duration
	maxBytes     int64
	maxMB        int64
	extensions   map[string]struct{}
	extList      []string
	pdfPreflight bool
	inspect      func(path string) (preflight.Info, error)

	log *slog.Logger
}

// New creates a Handlers instance from the given dependencies.
func New(cfg Config) *Handlers {
	extensions := make(map[string]struct{}, len(cfg.AllowedExtensions))
	extList := make([]string, 0, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(ext)
		if _, seen := extensions[ext]; seen {
			continue
		}
		extensions[ext] = struct{}{}
		extList = append(extList, ext)
	}
	sort.Strings(extList)

	inspect := cfg.Inspect
	if inspect == nil {
		inspect = preflight.Inspect
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Handlers{
		title:        cfg.Title,
		registry:     cfg.Registry,
		creds:        cfg.Credentials,
		tokens:       cfg.Tokens,
		ws:           cfg.Workspace,
		dispatcher:   cfg.Dispatcher,
		tokenTTL:     cfg.TokenTTL,
		maxBytes:     cfg.MaxFileSizeMB * 1024 * 1024,
		maxMB:        cfg.MaxFileSizeMB,
		extensions:   extensions,
		extList:      extList,
		pdfPreflight: cfg.PDFPreflight,
		inspect:      inspect,
		log:          log,
	}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error responses. reason is one
// of the machine-stable codes from pkg/api.
func (h *Handlers) httpError(w http.ResponseWriter, status int, reason, message string) {
	h.httpErrorDetails(w, status, reason, message, "")
}

func (h *Handlers) httpErrorDetails(w http.ResponseWriter, status int, reason, message, details string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	h.respondJson(w, status, api.ErrorResponse{
		Error:   message,
		Code:    reason,
		Details: details,
	})
}
