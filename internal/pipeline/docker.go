package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// DockerRunner runs the pipeline inside a container, bind-mounting the
// workspace root at the identical path so host paths in the argv resolve
// unchanged inside the container.
type DockerRunner struct {
	cli  *client.Client
	opts Options
	log  *slog.Logger
}

// NewDockerRunner creates a container-based runner. The client reads its
// connection settings from the standard environment variables (DOCKER_HOST, etc.)
func NewDockerRunner(opts Options, log *slog.Logger) (*DockerRunner, error) {
	if opts.DockerImage == "" {
		return nil, errors.New("docker image is required")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &DockerRunner{cli: cli, opts: opts, log: log}, nil
}

// Run executes the pipeline in a fresh container and blocks until it exits
// or ctx is done. The container is always removed afterwards.
func (r *DockerRunner) Run(ctx context.Context, inv Invocation) error {
	if len(r.opts.Command) == 0 {
		return errors.New("pipeline command is required")
	}

	if err := r.ensureImage(ctx); err != nil {
		return err
	}

	args := buildArgs(r.opts, inv)
	// The root holds both the uploaded source and the per-job output
	// directory, so one bind covers everything the argv references.
	root := filepath.Dir(inv.WorkspaceDir)

	created, err := r.cli.ContainerCreate(ctx,
		&container.Config{
			Image:      r.opts.DockerImage,
			Cmd:        args,
			WorkingDir: root,
		},
		&container.HostConfig{
			Binds: []string{fmt.Sprintf("%s:%s", root, root)},
		},
		nil, nil, "")
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	defer r.removeContainer(created.ID)

	r.log.Debug("starting pipeline container",
		"image", r.opts.DockerImage, "argv", args, "container_id", created.ID)

	if err := r.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container: %w", err)
	}

	start := time.Now()
	statusCh, errCh := r.cli.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)

	select {
	case err := <-errCh:
		if ctx.Err() != nil {
			r.stopContainer(created.ID)
			return ctx.Err()
		}
		return fmt.Errorf("wait for container: %w", err)
	case status := <-statusCh:
		if status.StatusCode != 0 {
			runErr := &RunError{
				ExitCode: int(status.StatusCode),
				Stderr:   r.containerStderr(created.ID),
			}
			r.log.Error("pipeline container failed",
				"exit_code", runErr.ExitCode,
				"duration", time.Since(start),
				"stderr", runErr.Error())
			return runErr
		}
	case <-ctx.Done():
		r.stopContainer(created.ID)
		return ctx.Err()
	}

	r.log.Debug("pipeline container finished", "duration", time.Since(start))
	return nil
}

// ensureImage checks for the image locally first to save time, pulling it
// only when absent.
func (r *DockerRunner) ensureImage(ctx context.Context) error {
	if _, err := r.cli.ImageInspect(ctx, r.opts.DockerImage); err == nil {
		return nil
	}
	reader, err := r.cli.ImagePull(ctx, r.opts.DockerImage, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", r.opts.DockerImage, err)
	}
	defer reader.Close()
	io.Copy(io.Discard, reader)
	return nil
}

// containerStderr fetches stderr from the container logs for the failure
// message, bounded the same way as the exec runner's capture.
func (r *DockerRunner) containerStderr(id string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rc, err := r.cli.ContainerLogs(ctx, id, container.LogsOptions{ShowStderr: true})
	if err != nil {
		return ""
	}
	defer rc.Close()

	stderr := &cappedBuffer{max: maxCapturedBytes}
	stdcopy.StdCopy(io.Discard, stderr, rc)
	return stderr.String()
}

// stopContainer and removeContainer run on fresh contexts so cleanup still
// happens when the run context is already cancelled.
func (r *DockerRunner) stopContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	timeout := 5
	if err := r.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout}); err != nil {
		r.log.Warn("failed to stop container", "container_id", id, "error", err)
	}
}

func (r *DockerRunner) removeContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		r.log.Warn("failed to remove container", "container_id", id, "error", err)
	}
}
