package manager

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Invocation is a resolved toolchain command for one operation.
type Invocation struct {
	// Path and Args form the host command line; Dir is its working directory.
	Path string
	Args []string
	Dir  string
	// Port is the host port for serve invocations.
	Port int

	// Container fields, set by container backends.
	Image string
	Mount string
	Name  string
	Cmd   []string
}

// String renders the command line written to job log headers.
func (inv Invocation) String() string {
	return strings.Join(append([]string{inv.Path}, inv.Args...), " ")
}

// Handle identifies a launched inference endpoint.
type Handle struct {
	PID         int
	ContainerID string
}

// Backend runs toolchain operations in one execution mode. Implementations
// decide the command shape; callers never branch on the mode.
type Backend interface {
	Mode() Mode
	// Command resolves the invocation for op on the project at projectDir.
	Command(op Op, project, projectDir string, port int) (Invocation, error)
	// Run executes inv to completion, writing combined output to out. A
	// non-zero exit is reported via the code, not the error.
	Run(ctx context.Context, inv Invocation, out io.Writer) (int, error)
	// Launch starts a long-running serve invocation without waiting for it.
	Launch(ctx context.Context, inv Invocation, logPath string) (Handle, error)
	// Terminate stops a launched endpoint, tolerating one that already exited.
	Terminate(ctx context.Context, h Handle) error
	// Check verifies the toolchain is reachable and describes it.
	Check(ctx context.Context) (string, error)
}

// NewBackend selects the backend for cfg.
func NewBackend(cfg ManagerConfig) (Backend, error) {
	if !cfg.UseDocker {
		return newLocalBackend(cfg.RasaBin), nil
	}
	if cfg.ContainerAPI {
		return newEngineBackend(cfg.Image)
	}
	return newContainerBackend(cfg.DockerBin, cfg.Image), nil
}

// serveArgs are the toolchain arguments of the serve operation.
func serveArgs(port int) []string {
	return []string{"run", "--enable-api", "--cors", "*", "--port", strconv.Itoa(port), "--model", "models"}
}

// runCommand runs inv to completion with stdout and stderr merged into out.
func runCommand(ctx context.Context, inv Invocation, out io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, inv.Path, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Stdout = out
	cmd.Stderr = out
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, ErrExecution("run "+filepath.Base(inv.Path), err)
}
