package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

// Spec carries everything needed to launch one worker process.
type Spec struct {
	JobID    int64
	WorkerID string
	Model    string
	Language string
	Threads  int
	LogPath  string
}

// Handle is a running worker process as seen by the orchestrator.
type Handle interface {
	Stdin() io.WriteCloser
	Stdout() io.ReadCloser
	PID() int
	Wait() error
}

// Spawner launches worker processes. The default implementation re-executes
// the current binary with the hidden worker subcommand; tests substitute an
// in-process fake.
type Spawner interface {
	Spawn(ctx context.Context, spec Spec) (Handle, error)
}

// ExecSpawner launches workers as real OS processes in their own process
// group, so the lifecycle manager can signal the whole group at once.
type ExecSpawner struct{}

type execHandle struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	log    *os.File
}

func (h *execHandle) Stdin() io.WriteCloser { return h.stdin }
func (h *execHandle) Stdout() io.ReadCloser { return h.stdout }
func (h *execHandle) PID() int              { return h.cmd.Process.Pid }

func (h *execHandle) Wait() error {
	err := h.cmd.Wait()
	if h.log != nil {
		_ = h.log.Close()
	}
	return err
}

// Spawn re-executes the running binary as `worker`, wiring stderr into the
// per-process log file.
func (s *ExecSpawner) Spawn(ctx context.Context, spec Spec) (Handle, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}

	args := []string{
		"worker",
		"--worker-id", spec.WorkerID,
		"--model", spec.Model,
		"--threads", strconv.Itoa(spec.Threads),
		"--log-file", spec.LogPath,
	}
	if spec.Language != "" {
		args = append(args, "--language", spec.Language)
	}

	cmd := exec.CommandContext(ctx, exe, args...) //nolint:gosec
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var logFile *os.File
	if spec.LogPath != "" {
		logFile, err = os.OpenFile(spec.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open worker log: %w", err)
		}
		cmd.Stderr = logFile
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		closeQuietly(logFile)
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		closeQuietly(logFile)
		return nil, fmt.Errorf("worker stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		closeQuietly(logFile)
		return nil, fmt.Errorf("start worker: %w", err)
	}
	return &execHandle{cmd: cmd, stdin: stdin, stdout: stdout, log: logFile}, nil
}

func closeQuietly(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}
