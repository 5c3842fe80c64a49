package manager

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"rasad/internal/common/fsutil"
)

// stopGrace is how long Terminate waits after SIGTERM before killing.
const stopGrace = 5 * time.Second

// localBackend runs the toolchain directly on the host.
type localBackend struct {
	rasaBin string
	getenv  func(string) string

	mu    sync.Mutex
	procs map[int]*localProc
}

type localProc struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func newLocalBackend(rasaBin string) *localBackend {
	return &localBackend{rasaBin: rasaBin, getenv: os.Getenv, procs: make(map[int]*localProc)}
}

func (b *localBackend) Mode() Mode { return ModeLocal }

// resolveBin finds the toolchain executable: explicit override, then PATH,
// then the active virtualenv.
func (b *localBackend) resolveBin() (string, error) {
	if b.rasaBin != "" && fsutil.IsExecutable(b.rasaBin) {
		return b.rasaBin, nil
	}
	if p, err := exec.LookPath("rasa"); err == nil {
		return p, nil
	}
	if venv := b.getenv("VIRTUAL_ENV"); venv != "" {
		p := filepath.Join(venv, "bin", "rasa")
		if fsutil.IsExecutable(p) {
			return p, nil
		}
	}
	return "", ErrNotFound("rasa executable", "set RASA_BIN, install rasa on PATH, or enable USE_DOCKER")
}

func (b *localBackend) Command(op Op, project, projectDir string, port int) (Invocation, error) {
	bin, err := b.resolveBin()
	if err != nil {
		return Invocation{}, err
	}
	inv := Invocation{Path: bin, Dir: projectDir, Port: port}
	switch op {
	case OpTrain:
		inv.Args = []string{"train"}
	case OpServe:
		inv.Args = serveArgs(port)
	default:
		return Invocation{}, fmt.Errorf("unknown op %q", op)
	}
	return inv, nil
}

func (b *localBackend) Run(ctx context.Context, inv Invocation, out io.Writer) (int, error) {
	return runCommand(ctx, inv, out)
}

func (b *localBackend) Launch(_ context.Context, inv Invocation, logPath string) (Handle, error) {
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Handle{}, ErrExecution("open serve log", err)
	}
	// Not bound to the request context: the endpoint outlives the request.
	cmd := exec.Command(inv.Path, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Stdout = f
	cmd.Stderr = f
	if err := cmd.Start(); err != nil {
		_ = f.Close()
		return Handle{}, ErrExecution("start "+filepath.Base(inv.Path), err)
	}
	p := &localProc{cmd: cmd, done: make(chan struct{})}
	pid := cmd.Process.Pid
	b.mu.Lock()
	b.procs[pid] = p
	b.mu.Unlock()
	go func() {
		_ = cmd.Wait()
		_ = f.Close()
		b.mu.Lock()
		delete(b.procs, pid)
		b.mu.Unlock()
		close(p.done)
	}()
	return Handle{PID: pid}, nil
}

func (b *localBackend) Terminate(ctx context.Context, h Handle) error {
	b.mu.Lock()
	p := b.procs[h.PID]
	b.mu.Unlock()
	if p == nil {
		// Already reaped, or started by another process; nothing we own to stop.
		return nil
	}
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && err != os.ErrProcessDone {
		return ErrExecution(fmt.Sprintf("signal pid %d", h.PID), err)
	}
	t := time.NewTimer(stopGrace)
	defer t.Stop()
	select {
	case <-p.done:
	case <-t.C:
		_ = p.cmd.Process.Kill()
		<-p.done
	case <-ctx.Done():
		_ = p.cmd.Process.Kill()
	}
	return nil
}

func (b *localBackend) Check(context.Context) (string, error) {
	return b.resolveBin()
}
