package store

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a job ID is not registered.
var ErrNotFound = errors.New("job not found")

// Registry is a concurrent in-memory index of jobs by ID. The registry
// lock guards only the map; each job carries its own lock, so mutating
// one job never blocks reads of another.
type Registry struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[uuid.UUID]*Job)}
}

// Add registers a job under its ID. IDs are UUIDv4 and never reused, so
// Add never overwrites an existing entry in practice.
func (r *Registry) Add(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
}

// Get returns the live job, for callers that need to apply transitions.
func (r *Registry) Get(id uuid.UUID) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	return job, ok
}

// Snapshot returns a consistent copy of the job's state, or ErrNotFound.
func (r *Registry) Snapshot(id uuid.UUID) (Snapshot, error) {
	job, ok := r.Get(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return job.Snapshot(), nil
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// CountByStatus returns how many jobs are in each status. Job locks are
// taken one at a time after the map lock is released.
func (r *Registry) CountByStatus() map[Status]int {
	r.mu.RLock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	r.mu.RUnlock()

	counts := make(map[Status]int)
	for _, j := range jobs {
		counts[j.Status()]++
	}
	return counts
}
