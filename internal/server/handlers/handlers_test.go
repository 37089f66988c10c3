package handlers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"ocrplane/internal/auth"
	"ocrplane/internal/config"
	"ocrplane/internal/server/middleware"
	"ocrplane/internal/store"
	"ocrplane/internal/workspace"
)

// mockDispatcher implements Dispatcher for testing.
type mockDispatcher struct {
	err      error
	enqueued []uuid.UUID
}

func (m *mockDispatcher) Enqueue(ctx context.Context, jobID uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, jobID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv bundles the real in-memory dependencies the handlers run
// against in tests.
type testEnv struct {
	handlers   *Handlers
	registry   *store.Registry
	dispatcher *mockDispatcher
	ws         *workspace.Manager
}

// newTestEnv wires handlers around a temp workspace with one known user
// (alice / wonderland) and preflight disabled.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ws := workspace.New(t.TempDir())
	if err := ws.EnsureRoot(); err != nil {
		t.Fatalf("EnsureRoot() error: %v", err)
	}

	dispatcher := &mockDispatcher{}
	registry := store.NewRegistry()

	h := New(Config{
		Title:    "ocrplane",
		Registry: registry,
		Credentials: auth.NewCredentialStore([]config.UserCredential{
			{Username: "alice", Password: "wonderland"},
		}),
		Tokens:            auth.NewTokenService("test-secret"),
		Workspace:         ws,
		Dispatcher:        dispatcher,
		TokenTTL:          time.Minute,
		MaxFileSizeMB:     1,
		AllowedExtensions: []string{".pdf", ".png", ".jpg", ".jpeg"},
		PDFPreflight:      false,
		Logger:            testLogger(),
	})

	return &testEnv{handlers: h, registry: registry, dispatcher: dispatcher, ws: ws}
}

// multipartBody builds a form body with a single file part.
func multipartBody(t *testing.T, fieldName, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(fieldName, filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("writing multipart content: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// authedRequest builds a request carrying the username the auth
// middleware would have injected.
func authedRequest(method, target string, body io.Reader, username string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := middleware.NewContextWithUsername(req.Context(), username)
	return req.WithContext(ctx)
}
