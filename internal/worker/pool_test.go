package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocrplane/internal/store"
)

// MockProcessor implements Processor for testing.
type MockProcessor struct {
	ProcessFunc func(ctx context.Context, jobID uuid.UUID) store.Status
}

func (m *MockProcessor) Process(ctx context.Context, jobID uuid.UUID) store.Status {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, jobID)
	}
	return store.StatusCompleted
}

func TestNewPool_Defaults(t *testing.T) {
	p := NewPool(&MockProcessor{}, store.NewRegistry(), testLogger(),
		WithWorkers(0), WithQueueSize(-1), WithTimeout(0))

	assert.Equal(t, defaultWorkers, p.workers)
	assert.Equal(t, defaultQueueSize, p.size)
	assert.Equal(t, defaultTimeout, p.timeout)
}

func TestNewPool_CustomOptions(t *testing.T) {
	p := NewPool(&MockProcessor{}, store.NewRegistry(), testLogger(),
		WithWorkers(5), WithQueueSize(16), WithTimeout(time.Second))

	assert.Equal(t, 5, p.workers)
	assert.Equal(t, 16, p.size)
	assert.Equal(t, time.Second, p.timeout)
}

func TestPool_ProcessesEnqueuedJobs(t *testing.T) {
	var processed atomic.Int32
	proc := &MockProcessor{
		ProcessFunc: func(ctx context.Context, jobID uuid.UUID) store.Status {
			processed.Add(1)
			return store.StatusCompleted
		},
	}

	p := NewPool(proc, store.NewRegistry(), testLogger(), WithWorkers(2))
	p.Start()

	const jobs = 10
	for i := 0; i < jobs; i++ {
		require.NoError(t, p.Enqueue(context.Background(), uuid.New()))
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if processed.Load() == jobs {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.EqualValues(t, jobs, processed.Load(), "not every enqueued job was processed")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, p.Shutdown(shutdownCtx))
}

func TestPool_ConcurrencyLimit(t *testing.T) {
	var running int32
	var maxConcurrent int32
	var mu sync.Mutex

	proc := &MockProcessor{
		ProcessFunc: func(ctx context.Context, jobID uuid.UUID) store.Status {
			current := atomic.AddInt32(&running, 1)
			mu.Lock()
			if current > maxConcurrent {
				maxConcurrent = current
			}
			mu.Unlock()
			time.Sleep(50 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return store.StatusCompleted
		},
	}

	const limit = 3
	p := NewPool(proc, store.NewRegistry(), testLogger(), WithWorkers(limit), WithQueueSize(32))
	p.Start()
	// A second Start must not add workers.
	p.Start()

	for i := 0; i < 12; i++ {
		require.NoError(t, p.Enqueue(context.Background(), uuid.New()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(shutdownCtx))

	assert.LessOrEqual(t, int(maxConcurrent), limit, "max concurrent jobs exceeded the worker limit")
}

func TestPool_ShutdownDrainsBuffered(t *testing.T) {
	var processed atomic.Int32
	proc := &MockProcessor{
		ProcessFunc: func(ctx context.Context, jobID uuid.UUID) store.Status {
			time.Sleep(20 * time.Millisecond)
			processed.Add(1)
			return store.StatusCompleted
		},
	}

	p := NewPool(proc, store.NewRegistry(), testLogger(), WithWorkers(2), WithQueueSize(32))
	p.Start()

	const jobs = 8
	for i := 0; i < jobs; i++ {
		require.NoError(t, p.Enqueue(context.Background(), uuid.New()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(shutdownCtx))

	assert.EqualValues(t, jobs, processed.Load(), "Shutdown returned before all buffered jobs were processed")
}

func TestPool_ShutdownTimeout(t *testing.T) {
	release := make(chan struct{})
	proc := &MockProcessor{
		ProcessFunc: func(ctx context.Context, jobID uuid.UUID) store.Status {
			<-release
			return store.StatusCompleted
		},
	}

	p := NewPool(proc, store.NewRegistry(), testLogger(), WithWorkers(1))
	p.Start()
	defer close(release)

	require.NoError(t, p.Enqueue(context.Background(), uuid.New()))
	// Give the worker time to pick the job up.
	time.Sleep(50 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(shutdownCtx), context.DeadlineExceeded)
}

func TestPool_EnqueueAfterShutdown(t *testing.T) {
	p := NewPool(&MockProcessor{}, store.NewRegistry(), testLogger())
	p.Start()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(shutdownCtx))

	assert.ErrorIs(t, p.Enqueue(context.Background(), uuid.New()), ErrPoolClosed)
}

func TestPool_EnqueueBlocksWhenFull(t *testing.T) {
	// No Start(): nothing consumes the queue.
	p := NewPool(&MockProcessor{}, store.NewRegistry(), testLogger(), WithQueueSize(1))

	require.NoError(t, p.Enqueue(context.Background(), uuid.New()))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Enqueue(ctx, uuid.New())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond,
		"Enqueue gave up early, expected it to block until the ctx deadline")
}

func TestPool_Backlog(t *testing.T) {
	p := NewPool(&MockProcessor{}, store.NewRegistry(), testLogger(), WithQueueSize(8))

	assert.Equal(t, 0, p.Backlog())
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Enqueue(context.Background(), uuid.New()))
	}
	assert.Equal(t, 3, p.Backlog())
}

func TestPool_PanicRecordedOnJob(t *testing.T) {
	reg := store.NewRegistry()
	id := uuid.New()
	reg.Add(store.NewJob(id, "alice", "/src", "/ws", 0))

	var calls atomic.Int32
	proc := &MockProcessor{
		ProcessFunc: func(ctx context.Context, jobID uuid.UUID) store.Status {
			if calls.Add(1) == 1 {
				panic("boom")
			}
			return store.StatusCompleted
		},
	}

	p := NewPool(proc, reg, testLogger(), WithWorkers(1))
	p.Start()

	require.NoError(t, p.Enqueue(context.Background(), id))
	// The pool must survive the panic and keep processing.
	require.NoError(t, p.Enqueue(context.Background(), uuid.New()))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if calls.Load() >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.GreaterOrEqual(t, calls.Load(), int32(2), "pool stopped processing after panic")

	snap, err := reg.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, snap.Status)
	assert.Contains(t, snap.Error, "internal fault")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p.Shutdown(shutdownCtx)
}

func TestPool_JobTimeoutApplied(t *testing.T) {
	var sawDeadline atomic.Bool
	proc := &MockProcessor{
		ProcessFunc: func(ctx context.Context, jobID uuid.UUID) store.Status {
			deadline, ok := ctx.Deadline()
			if ok && time.Until(deadline) <= 100*time.Millisecond {
				sawDeadline.Store(true)
			}
			return store.StatusCompleted
		},
	}

	p := NewPool(proc, store.NewRegistry(), testLogger(), WithWorkers(1), WithTimeout(100*time.Millisecond))
	p.Start()

	require.NoError(t, p.Enqueue(context.Background(), uuid.New()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(shutdownCtx))

	assert.True(t, sawDeadline.Load(), "job context did not carry the configured timeout")
}
