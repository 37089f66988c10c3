package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"ocrplane/internal/pipeline"
	"ocrplane/internal/store"
	"ocrplane/internal/workspace"
)

// noResultMessage is recorded when the pipeline exits cleanly but leaves
// no markdown behind.
const noResultMessage = "processing completed but no result file found"

// JobProcessor drives a single job through the pipeline: workspace
// directory, subprocess run, artifact discovery, terminal transition.
type JobProcessor struct {
	registry *store.Registry
	ws       *workspace.Manager
	runner   pipeline.Runner
	timeout  time.Duration
	log      *slog.Logger
}

// NewJobProcessor wires the processor's collaborators. The timeout is
// only used to phrase the failure message; the pool owns enforcement.
func NewJobProcessor(registry *store.Registry, ws *workspace.Manager, runner pipeline.Runner, timeout time.Duration, log *slog.Logger) *JobProcessor {
	return &JobProcessor{
		registry: registry,
		ws:       ws,
		runner:   runner,
		timeout:  timeout,
		log:      log,
	}
}

// Process runs the job to a terminal state and returns that state.
func (jp *JobProcessor) Process(ctx context.Context, jobID uuid.UUID) store.Status {
	log := jp.log.With("job_id", jobID)

	job, ok := jp.registry.Get(jobID)
	if !ok {
		log.Error("job missing from registry, dropping")
		return store.StatusFailed
	}

	dir, err := jp.ws.CreateJobDir(jobID)
	if err != nil {
		return jp.fail(job, log, err.Error())
	}

	if err := job.MarkProcessing(); err != nil {
		log.Error("cannot start processing", "error", err)
		return job.Status()
	}
	log.Info("job processing", "source", job.SourcePath)

	err = jp.runner.Run(ctx, pipeline.Invocation{
		WorkspaceDir: dir,
		SourcePath:   job.SourcePath,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return jp.fail(job, log, fmt.Sprintf("pipeline timed out after %s", jp.timeout))
		}
		// RunError's message is the trimmed stderr, or "exit status N"
		// when the process was silent.
		return jp.fail(job, log, err.Error())
	}

	artifact, err := workspace.FindMarkdown(dir)
	if err != nil {
		return jp.fail(job, log, err.Error())
	}
	if artifact == "" {
		return jp.fail(job, log, noResultMessage)
	}

	text, err := os.ReadFile(artifact)
	if err != nil {
		return jp.fail(job, log, fmt.Sprintf("read result file: %v", err))
	}

	if err := job.Complete(string(text), artifact); err != nil {
		log.Error("cannot complete job", "error", err)
		return job.Status()
	}
	log.Info("job completed", "result_path", artifact, "result_bytes", len(text))
	return store.StatusCompleted
}

func (jp *JobProcessor) fail(job *store.Job, log *slog.Logger, msg string) store.Status {
	if err := job.Fail(msg); err != nil {
		log.Error("cannot mark job failed", "error", err)
		return job.Status()
	}
	log.Warn("job failed", "error", msg)
	return store.StatusFailed
}
