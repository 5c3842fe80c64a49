package manager

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"
)

// fakeBackend is an in-memory Backend used for tests.
type fakeBackend struct {
	mu sync.Mutex

	mode         Mode
	commandErr   error
	output       string
	exitCode     int
	runErr       error
	launchErr    error
	launchDelay  time.Duration
	terminateErr error
	// runGate, when set, blocks Run until closed.
	runGate chan struct{}
	// launchGate, when set, blocks Launch until closed.
	launchGate chan struct{}
	afterGate  string

	runs       []Invocation
	launches   []Invocation
	terminated []Handle
	nextPID    int
}

func newFakeBackend() *fakeBackend { return &fakeBackend{mode: ModeLocal, nextPID: 1000} }

func (f *fakeBackend) Mode() Mode { return f.mode }

func (f *fakeBackend) Command(op Op, project, projectDir string, port int) (Invocation, error) {
	if f.commandErr != nil {
		return Invocation{}, f.commandErr
	}
	inv := Invocation{Path: "/fake/rasa", Dir: projectDir, Port: port}
	if op == OpTrain {
		inv.Args = []string{"train"}
	} else {
		inv.Args = serveArgs(port)
	}
	return inv, nil
}

func (f *fakeBackend) Run(ctx context.Context, inv Invocation, out io.Writer) (int, error) {
	f.mu.Lock()
	f.runs = append(f.runs, inv)
	gate, output, after := f.runGate, f.output, f.afterGate
	code, err := f.exitCode, f.runErr
	f.mu.Unlock()
	if output != "" {
		_, _ = io.WriteString(out, output)
	}
	if gate != nil {
		<-gate
	}
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	if after != "" {
		_, _ = io.WriteString(out, after)
	}
	return code, err
}

func (f *fakeBackend) Launch(ctx context.Context, inv Invocation, logPath string) (Handle, error) {
	f.mu.Lock()
	f.launches = append(f.launches, inv)
	gate, delay, err := f.launchGate, f.launchDelay, f.launchErr
	f.nextPID++
	pid := f.nextPID
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return Handle{}, err
	}
	if f.mode == ModeDocker {
		return Handle{ContainerID: fmt.Sprintf("cid-%d", pid)}, nil
	}
	return Handle{PID: pid}, nil
}

func (f *fakeBackend) Terminate(ctx context.Context, h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = append(f.terminated, h)
	return f.terminateErr
}

func (f *fakeBackend) Check(context.Context) (string, error) { return "/fake/rasa", nil }

func (f *fakeBackend) terminatedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.terminated)
}

// fakeArchiver records archived job ids.
type fakeArchiver struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (a *fakeArchiver) Archive(_ context.Context, jobID, path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ids = append(a.ids, jobID)
	return a.err
}

// syncBuffer is a goroutine-safe bytes.Buffer.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

// newTestManager builds a Manager over temp dirs with a fake backend and no
// settling delay. cfg fields that are set are kept.
func newTestManager(t *testing.T, fb *fakeBackend, cfg ManagerConfig) *Manager {
	t.Helper()
	if cfg.Workspace == "" {
		cfg.Workspace = filepath.Join(t.TempDir(), "workspace")
	}
	if cfg.LogsDir == "" {
		cfg.LogsDir = filepath.Join(t.TempDir(), "logs")
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = -1
	}
	if fb != nil {
		cfg.Backend = fb
	}
	m, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	t.Cleanup(func() { m.Close(context.Background()) })
	return m
}

// writeProject creates a trainable project directory under root.
func writeProject(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, f := range []string{"config.yml", "domain.yml", "data/nlu.yml"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("version: '3.1'\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
	return dir
}

// writeScript writes an executable shell script and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return p
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
