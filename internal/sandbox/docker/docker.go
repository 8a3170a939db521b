// Package docker implements the sandbox.Backend interface using the Docker
// Engine API. Each run gets a container from a pre-warmed pool, receives the
// compiled binary via the archive API, executes it with stdin attached, and
// the container is force-removed afterwards — nothing from one request is
// ever visible to the next.
package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/cpp-engine/internal/sandbox"
)

// programDir is the tmpfs mount inside the container that receives the
// binary. The rest of the filesystem is read-only.
const programDir = "/sandbox"

// Backend implements sandbox.Backend on top of the Docker Engine API.
type Backend struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pool   *Pool
}

var _ sandbox.Backend = (*Backend)(nil)

// New connects to the Docker daemon, ensures the sandbox image is present,
// and starts the container pool. Any failure here means the backend is
// unavailable and the caller should fall back to direct execution.
func New(cfg Config, logger *slog.Logger) (*Backend, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker daemon unreachable: %w", err)
	}

	if _, _, err := cli.ImageInspectWithRaw(ctx, cfg.Image); err != nil {
		logger.Info("sandbox image not present locally, pulling", slog.String("image", cfg.Image))
		reader, err := cli.ImagePull(ctx, cfg.Image, image.PullOptions{})
		if err != nil {
			cli.Close()
			return nil, fmt.Errorf("sandbox image %s unavailable: %w", cfg.Image, err)
		}
		// Read everything to block until the pull is complete.
		io.Copy(io.Discard, reader)
		reader.Close()
	}
	logger.Info("docker sandbox ready", slog.String("image", cfg.Image))

	b := &Backend{
		cli:    cli,
		config: cfg,
		logger: logger,
	}
	b.pool = NewPool(cli, cfg, logger)
	b.pool.Start()

	return b, nil
}

// Close shuts down the container pool and the docker client.
func (b *Backend) Close() error {
	b.pool.Stop()
	return b.cli.Close()
}

// Run executes one compiled artifact inside a sandbox container.
func (b *Backend) Run(ctx context.Context, req sandbox.Request) (*sandbox.Result, error) {
	start := time.Now()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = b.config.Timeout
	}

	containerID, err := b.pool.GetContainer(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: no container available: %v", sandbox.ErrUnavailable, err)
	}

	// The acquired container is single-use: remove it no matter what.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := b.cli.ContainerRemove(cleanupCtx, containerID, container.RemoveOptions{Force: true})
		if err != nil {
			b.logger.Error("failed to remove container",
				slog.String("id", containerID), slog.String("error", err.Error()))
		}
	}()

	if err := b.copyArtifact(ctx, containerID, req.ArtifactPath); err != nil {
		return nil, err
	}

	execCtx, execCancel := context.WithTimeout(ctx, timeout)
	defer execCancel()

	execConfig := container.ExecOptions{
		AttachStdin:  len(req.Stdin) > 0,
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          []string{programDir + "/program"},
	}
	execResp, err := b.cli.ContainerExecCreate(execCtx, containerID, execConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := b.cli.ContainerExecAttach(execCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attachResp.Close()

	if len(req.Stdin) > 0 {
		// Write the payload and half-close so the program observes EOF.
		if _, err := attachResp.Conn.Write(req.Stdin); err != nil {
			b.logger.Warn("writing stdin to sandbox failed", slog.String("error", err.Error()))
		}
		_ = attachResp.CloseWrite()
	}

	var stdout, stderr bytes.Buffer
	done := make(chan struct{})
	go func() {
		// stdcopy demultiplexes the stdout/stderr frames on one stream.
		_, _ = stdcopy.StdCopy(
			limitWriter(&stdout, b.config.MaxCaptureBytes),
			limitWriter(&stderr, b.config.MaxCaptureBytes),
			attachResp.Reader,
		)
		close(done)
	}()

	res := &sandbox.Result{ExitCode: -1}

	select {
	case <-done:
		inspect, err := b.cli.ContainerExecInspect(ctx, execResp.ID)
		if err == nil {
			res.ExitCode = inspect.ExitCode
		}
	case <-execCtx.Done():
		// Deferred force-remove kills the container; nothing to wait for.
		timedOut, cancelErr := deadlineOutcome(ctx)
		if cancelErr != nil {
			return nil, cancelErr
		}
		res.TimedOut = timedOut
	}

	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	res.Duration = time.Since(start)
	res.OOMKilled = b.wasOOMKilled(containerID) || res.ExitCode == 137

	return res, nil
}

// copyArtifact streams the compiled binary into the container's tmpfs as an
// executable tar entry.
func (b *Backend) copyArtifact(ctx context.Context, containerID, path string) error {
	binary, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading artifact: %w", err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{
		Name: "program",
		Mode: 0o755,
		Size: int64(len(binary)),
	}); err != nil {
		return fmt.Errorf("writing artifact tar header: %w", err)
	}
	if _, err := tw.Write(binary); err != nil {
		return fmt.Errorf("writing artifact tar body: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing artifact tar: %w", err)
	}

	err = b.cli.CopyToContainer(ctx, containerID, programDir, &buf, container.CopyToContainerOptions{})
	if err != nil {
		return fmt.Errorf("copying artifact into container: %w", err)
	}
	return nil
}

// deadlineOutcome tells the run hitting its own time limit apart from the
// caller abandoning the request. Only the former is a timeout; a client
// disconnect must not be recorded as one.
func deadlineOutcome(parent context.Context) (bool, error) {
	if err := parent.Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Backend) wasOOMKilled(containerID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	inspect, err := b.cli.ContainerInspect(ctx, containerID)
	if err != nil || inspect.State == nil {
		return false
	}
	return inspect.State.OOMKilled
}

// limitWriter caps how many bytes reach w; the remainder is discarded so the
// demux keeps draining the stream.
func limitWriter(w *bytes.Buffer, max int64) io.Writer {
	if max <= 0 {
		return w
	}
	return &cappedWriter{w: w, remaining: max}
}

type cappedWriter struct {
	w         *bytes.Buffer
	remaining int64
}

func (c *cappedWriter) Write(p []byte) (int, error) {
	if c.remaining > 0 {
		n := int64(len(p))
		if n > c.remaining {
			n = c.remaining
		}
		c.w.Write(p[:n])
		c.remaining -= n
	}
	return len(p), nil
}
