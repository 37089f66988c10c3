// Package store holds the in-memory job model and the registry that
// indexes jobs by ID for the API handlers and the worker pool.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a job. Transitions are strictly
// queued -> processing -> completed|failed; failed is also reachable
// straight from queued. Terminal states never change.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress maps the status to the coarse progress value the API reports.
func (s Status) Progress() float64 {
	switch s {
	case StatusProcessing:
		return 0.5
	case StatusCompleted:
		return 1.0
	default:
		return 0.0
	}
}

// Job is a single document submission. Identity and creation-time fields
// never change after construction; mutable state is guarded by mu and
// changes only through the transition methods below.
type Job struct {
	ID            uuid.UUID
	Owner         string
	SourcePath    string
	WorkspacePath string
	PageCount     int
	CreatedAt     time.Time

	mu         sync.Mutex
	status     Status
	resultText string
	resultPath string
	errMsg     string
}

// NewJob creates a queued job with the given identity. The caller mints
// the ID first because the source file is persisted under it before the
// job exists.
func NewJob(id uuid.UUID, owner, sourcePath, workspacePath string, pageCount int) *Job {
	return &Job{
		ID:            id,
		Owner:         owner,
		SourcePath:    sourcePath,
		WorkspacePath: workspacePath,
		PageCount:     pageCount,
		CreatedAt:     time.Now().UTC(),
		status:        StatusQueued,
	}
}

// Status returns the job's current status.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// MarkProcessing moves the job from queued to processing.
func (j *Job) MarkProcessing() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusQueued {
		return fmt.Errorf("job %s: cannot start processing from %s", j.ID, j.status)
	}
	j.status = StatusProcessing
	return nil
}

// Complete moves the job from processing to completed, recording the
// extracted text and the artifact path it came from.
func (j *Job) Complete(text, path string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusProcessing {
		return fmt.Errorf("job %s: cannot complete from %s", j.ID, j.status)
	}
	j.status = StatusCompleted
	j.resultText = text
	j.resultPath = path
	return nil
}

// Fail moves the job to failed from any non-terminal state, recording the
// failure message. Result fields stay empty.
func (j *Job) Fail(msg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return fmt.Errorf("job %s: cannot fail from %s", j.ID, j.status)
	}
	j.status = StatusFailed
	j.errMsg = msg
	return nil
}

// Snapshot is a point-in-time copy of a job's state. Readers work from
// snapshots so they never observe a half-applied transition.
type Snapshot struct {
	ID            uuid.UUID
	Owner         string
	Status        Status
	Progress      float64
	SourcePath    string
	WorkspacePath string
	ResultText    string
	ResultPath    string
	Error         string
	PageCount     int
	CreatedAt     time.Time
}

// Snapshot returns a copy of the job's current state taken under the lock.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		ID:            j.ID,
		Owner:         j.Owner,
		Status:        j.status,
		Progress:      j.status.Progress(),
		SourcePath:    j.SourcePath,
		WorkspacePath: j.WorkspacePath,
		ResultText:    j.resultText,
		ResultPath:    j.resultPath,
		Error:         j.errMsg,
		PageCount:     j.PageCount,
		CreatedAt:     j.CreatedAt,
	}
}
