// Package pipeline runs the external OCR engine over an uploaded document.
// The engine is an ordinary subprocess (or container) that writes markdown
// into the job's workspace directory.
package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// Invocation describes one pipeline run.
type Invocation struct {
	WorkspaceDir string
	SourcePath   string
}

// Options controls how the pipeline argv is composed.
type Options struct {
	Command        []string
	Markdown       bool
	ExtractTables  bool
	ExtractFigures bool
	DockerImage    string
}

// Runner executes the pipeline for a single job. Implementations block
// until the run finishes or ctx is done.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// RunError reports a pipeline process that exited non-zero.
type RunError struct {
	ExitCode int
	Stderr   string
}

// Error returns the trimmed stderr when the process produced any, falling
// back to the exit status. This string is what gets recorded on the job.
func (e *RunError) Error() string {
	if s := strings.TrimSpace(e.Stderr); s != "" {
		return s
	}
	return fmt.Sprintf("exit status %d", e.ExitCode)
}

// buildArgs composes the full argv:
//
//	command... workspaceDir [--markdown] [--extract_tables] [--extract_figures] --pdfs sourcePath
func buildArgs(opts Options, inv Invocation) []string {
	args := make([]string, 0, len(opts.Command)+6)
	args = append(args, opts.Command...)
	args = append(args, inv.WorkspaceDir)
	if opts.Markdown {
		args = append(args, "--markdown")
	}
	if opts.ExtractTables {
		args = append(args, "--extract_tables")
	}
	if opts.ExtractFigures {
		args = append(args, "--extract_figures")
	}
	args = append(args, "--pdfs", inv.SourcePath)
	return args
}
