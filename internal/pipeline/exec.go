package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"
)

// maxCapturedBytes bounds how much subprocess output is retained for error
// messages and debug logs.
const maxCapturedBytes = 8 * 1024

// ExecRunner runs the pipeline as a local OS process.
type ExecRunner struct {
	opts Options
	log  *slog.Logger
}

// NewExecRunner creates a process-based runner.
func NewExecRunner(opts Options, log *slog.Logger) *ExecRunner {
	return &ExecRunner{opts: opts, log: log}
}

// Run executes the pipeline and blocks until it exits or ctx is done.
// A non-zero exit becomes a *RunError; cancellation and deadlines surface
// as the context's error so callers can tell timeouts apart.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) error {
	if len(r.opts.Command) == 0 {
		return errors.New("pipeline command is required")
	}

	args := buildArgs(r.opts, inv)
	r.log.Debug("starting pipeline process", "argv", args, "workspace", inv.WorkspaceDir)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	stdout := &cappedBuffer{max: maxCapturedBytes}
	stderr := &cappedBuffer{max: maxCapturedBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		// The context error wins: a killed process reports exit -1, but the
		// caller needs to see the deadline/cancellation.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			runErr := &RunError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
			r.log.Error("pipeline process failed",
				"exit_code", runErr.ExitCode,
				"duration", time.Since(start),
				"stderr", runErr.Error())
			return runErr
		}
		return err
	}

	r.log.Debug("pipeline process finished", "duration", time.Since(start))
	return nil
}

// cappedBuffer retains the first max bytes written and discards the rest,
// so a chatty subprocess cannot grow memory unbounded.
type cappedBuffer struct {
	max int
	buf bytes.Buffer
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if remaining := b.max - b.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
