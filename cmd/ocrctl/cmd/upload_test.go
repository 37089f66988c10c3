package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ocrplane/pkg/api"

	"github.com/spf13/viper"
)

// writeTempFile creates a file with the given name and content under a
// fresh temp dir and returns its path.
func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestUploadCommand_Success(t *testing.T) {
	resetViper()

	filePath := writeTempFile(t, "report.pdf", "%PDF-1.4 test content")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST method, got %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/ocr/upload") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("expected Bearer token, got: %s", r.Header.Get("Authorization"))
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("expected multipart part named file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "report.pdf" {
			t.Errorf("expected filename report.pdf, got: %s", header.Filename)
		}
		content, _ := io.ReadAll(file)
		if string(content) != "%PDF-1.4 test content" {
			t.Errorf("file content did not survive the upload: %q", content)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(api.JobStatusResponse{
			JobID:     "4f5e6d7c-1a2b-3c4d-5e6f-708192a3b4c5",
			Status:    api.StatusQueued,
			Progress:  0,
			CreatedAt: time.Now(),
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"upload", filePath})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Job ID: 4f5e6d7c-1a2b-3c4d-5e6f-708192a3b4c5") {
		t.Errorf("expected job ID in output, got: %s", output)
	}
	if !strings.Contains(output, "✓") {
		t.Errorf("expected success marker, got: %s", output)
	}
}

func TestUploadCommand_MultipleFiles(t *testing.T) {
	resetViper()

	paths := []string{
		writeTempFile(t, "a.pdf", "doc a"),
		writeTempFile(t, "b.png", "doc b"),
		writeTempFile(t, "c.jpg", "doc c"),
	}

	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(api.JobStatusResponse{
			JobID:     "job-for-" + header.Filename,
			Status:    api.StatusQueued,
			CreatedAt: time.Now(),
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs(append([]string{"upload"}, paths...))

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Errorf("expected 3 upload requests, got: %d", got)
	}

	output := stdout.String()
	for _, name := range []string{"a.pdf", "b.png", "c.jpg"} {
		if !strings.Contains(output, "job-for-"+name) {
			t.Errorf("expected job ID for %s in output, got: %s", name, output)
		}
	}
}

func TestUploadCommand_PartialFailure(t *testing.T) {
	resetViper()

	goodPath := writeTempFile(t, "good.pdf", "fine")
	badPath := writeTempFile(t, "malware.exe", "nope")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if strings.HasSuffix(header.Filename, ".exe") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(api.ErrorResponse{
				Error: `Unsupported file type ".exe"`,
				Code:  api.ReasonValidation,
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(api.JobStatusResponse{
			JobID:     "job-good",
			Status:    api.StatusQueued,
			CreatedAt: time.Now(),
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"upload", goodPath, badPath})

	err := rootCmd.Execute()
	if err == nil {
		t.Error("expected non-nil error when one upload fails")
	}

	output := stdout.String()
	if !strings.Contains(output, "job-good") {
		t.Errorf("expected surviving upload's job ID, got: %s", output)
	}
	if !strings.Contains(output, `Unsupported file type ".exe"`) {
		t.Errorf("expected rejection message, got: %s", output)
	}
	if !strings.Contains(output, "1 of 2 uploads failed") {
		t.Errorf("expected failure summary, got: %s", output)
	}
}

func TestUploadCommand_MissingToken(t *testing.T) {
	resetViper()

	viper.Set("url", "http://localhost:8015")
	viper.Set("token", "")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"upload", "whatever.pdf"})

	err := rootCmd.Execute()
	if err == nil {
		t.Error("expected error when token missing")
	}

	output := stdout.String()
	if !strings.Contains(output, "API token not found") {
		t.Errorf("expected token error message, got: %s", output)
	}
}

func TestUploadCommand_FileDoesNotExist(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for a missing file")
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"upload", "/does/not/exist.pdf"})

	err := rootCmd.Execute()
	if err == nil {
		t.Error("expected error for missing file")
	}

	output := stdout.String()
	if !strings.Contains(output, "✗") {
		t.Errorf("expected failure marker, got: %s", output)
	}
}

func TestUploadCommand_RequiresFileArgument(t *testing.T) {
	resetViper()
	viper.Set("token", "test-token")

	var stderr bytes.Buffer
	rootCmd.SetOut(&stderr)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"upload"}) // No files

	err := rootCmd.Execute()
	if err == nil {
		t.Error("expected error when no file provided")
	}
}
