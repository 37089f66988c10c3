// Package worker dispatches accepted jobs to a bounded pool and drives
// each one through the OCR pipeline to a terminal state.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"ocrplane/internal/store"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 64
	defaultTimeout   = 30 * time.Minute
)

// ErrPoolClosed is returned by Enqueue once shutdown has begun.
var ErrPoolClosed = errors.New("worker pool is closed")

// Processor handles a single job and reports the final status it recorded.
type Processor interface {
	Process(ctx context.Context, jobID uuid.UUID) store.Status
}

// Option configures a Pool.
type Option func(*Pool)

// WithWorkers sets how many jobs run concurrently. Non-positive values
// keep the default.
func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithQueueSize sets the dispatch buffer capacity. Non-positive values
// keep the default.
func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithTimeout bounds each job's pipeline run. Non-positive values keep
// the default.
func WithTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// Pool fans accepted job IDs out to a fixed set of worker goroutines
// through a bounded buffer. Each job runs on its own timeout-bounded
// context, deliberately detached from server shutdown contexts so
// accepted work drains.
type Pool struct {
	proc     Processor
	registry *store.Registry
	log      *slog.Logger

	workers int
	size    int
	timeout time.Duration

	queue    chan uuid.UUID
	stopping chan struct{}

	startOnce sync.Once
	mu        sync.Mutex
	closed    bool
	wg        sync.WaitGroup

	processed metric.Int64Counter
}

// NewPool creates a pool around the given processor. Start must be called
// before Enqueue.
func NewPool(proc Processor, registry *store.Registry, log *slog.Logger, opts ...Option) *Pool {
	p := &Pool{
		proc:     proc,
		registry: registry,
		log:      log,
		workers:  defaultWorkers,
		size:     defaultQueueSize,
		timeout:  defaultTimeout,
		stopping: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.queue = make(chan uuid.UUID, p.size)

	meter := otel.Meter("ocrplane-worker")
	processed, err := meter.Int64Counter("ocrplane.jobs.processed",
		metric.WithDescription("Jobs processed, partitioned by final status"))
	if err != nil {
		log.Warn("failed to register processed-jobs counter", "error", err)
	} else {
		p.processed = processed
	}
	return p
}

// Start launches the worker goroutines. Calling it again is a no-op.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.run()
		}
		p.log.Info("worker pool started", "workers", p.workers, "queue_size", p.size)
	})
}

// Enqueue hands a job to the pool. It tries a non-blocking send first;
// when the buffer is full it blocks until space frees up or ctx is done.
// After Shutdown it returns ErrPoolClosed.
func (p *Pool) Enqueue(ctx context.Context, jobID uuid.UUID) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- jobID:
		return nil
	default:
	}

	select {
	case p.queue <- jobID:
		return nil
	case <-p.stopping:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backlog returns how many jobs are waiting in the buffer.
func (p *Pool) Backlog() int {
	return len(p.queue)
}

// Shutdown stops intake, then waits for buffered and in-flight jobs to
// finish or for ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.stopping)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("worker pool drained")
		return nil
	case <-ctx.Done():
		p.log.Warn("worker pool shutdown abandoned with jobs still running")
		return ctx.Err()
	}
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case jobID := <-p.queue:
			p.handle(jobID)
		case <-p.stopping:
			// Drain whatever is still buffered, then exit.
			for {
				select {
				case jobID := <-p.queue:
					p.handle(jobID)
				default:
					return
				}
			}
		}
	}
}

// handle runs one job with panic isolation. Nothing in this lane may take
// the process down.
func (p *Pool) handle(jobID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	tracer := otel.Tracer("ocrplane-worker")
	ctx, span := tracer.Start(ctx, "process_job",
		trace.WithAttributes(attribute.String("job.id", jobID.String())),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("panic while processing job", "job_id", jobID, "panic", r)
			if job, ok := p.registry.Get(jobID); ok {
				if err := job.Fail(fmt.Sprintf("internal fault: %v", r)); err != nil {
					p.log.Error("cannot record panic on job", "job_id", jobID, "error", err)
				}
			}
			span.SetAttributes(attribute.String("job.status", string(store.StatusFailed)))
			p.recordProcessed(ctx, store.StatusFailed)
		}
	}()

	status := p.proc.Process(ctx, jobID)
	span.SetAttributes(attribute.String("job.status", string(status)))
	p.recordProcessed(ctx, status)
}

func (p *Pool) recordProcessed(ctx context.Context, status store.Status) {
	if p.processed == nil {
		return
	}
	p.processed.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
}
