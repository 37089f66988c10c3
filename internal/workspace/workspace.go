// Package workspace owns the on-disk layout for uploaded documents and
// per-job pipeline output directories under a single root.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Manager derives and creates paths under the workspace root. All uploaded
// sources and job output directories live below the root; callers never
// construct workspace paths themselves.
type Manager struct {
	root string
}

// New creates a Manager for the given root directory. The path is cleaned
// and made absolute so that subprocess runtimes (docker bind mounts in
// particular) see the same paths the server does.
func New(root string) *Manager {
	abs, err := filepath.Abs(root)
	if err != nil {
		// filepath.Abs only fails when the working directory is gone;
		// fall back to the cleaned relative path.
		abs = filepath.Clean(root)
	}
	return &Manager{root: abs}
}

// Root returns the absolute workspace root.
func (m *Manager) Root() string {
	return m.root
}

// EnsureRoot creates the root directory if needed and verifies it is
// writable by creating and removing a probe file.
func (m *Manager) EnsureRoot() error {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	probe, err := os.CreateTemp(m.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("workspace root not writable: %w", err)
	}
	probe.Close()
	if err := os.Remove(probe.Name()); err != nil {
		return fmt.Errorf("workspace root cleanup: %w", err)
	}
	return nil
}

// SourcePath returns where the uploaded document for a job is persisted.
// The filename is reduced to its base name so client-supplied paths cannot
// escape the root.
func (m *Manager) SourcePath(jobID uuid.UUID, filename string) string {
	base := filepath.Base(filepath.Clean(filename))
	return filepath.Join(m.root, fmt.Sprintf("%s_%s", jobID, base))
}

// JobDir returns the per-job output directory path. The directory itself
// is created lazily by CreateJobDir when processing starts.
func (m *Manager) JobDir(jobID uuid.UUID) string {
	return filepath.Join(m.root, jobID.String())
}

// CreateJobDir creates the per-job output directory. Creating an existing
// directory is not an error.
func (m *Manager) CreateJobDir(jobID uuid.UUID) (string, error) {
	dir := m.JobDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job directory: %w", err)
	}
	return dir, nil
}

// FindMarkdown searches jobDir/markdown recursively for .md files and
// returns the lexicographically first path. It returns ("", nil) when the
// markdown directory does not exist or holds no .md files.
func FindMarkdown(jobDir string) (string, error) {
	mdDir := filepath.Join(jobDir, "markdown")
	if _, err := os.Stat(mdDir); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("stat markdown directory: %w", err)
	}

	var found []string
	err := filepath.WalkDir(mdDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".md") {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan markdown directory: %w", err)
	}
	if len(found) == 0 {
		return "", nil
	}
	sort.Strings(found)
	return found[0], nil
}
