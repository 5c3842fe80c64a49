package httpapi

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"testing"

	"rasad/internal/manager"
)

// stubBackend launches nothing and reports success for every call.
type stubBackend struct{}

func (stubBackend) Mode() manager.Mode { return manager.ModeLocal }
func (stubBackend) Command(op manager.Op, project, dir string, port int) (manager.Invocation, error) {
	return manager.Invocation{Path: "/stub/rasa", Args: []string{string(op)}, Dir: dir, Port: port}, nil
}
func (stubBackend) Run(ctx context.Context, inv manager.Invocation, out io.Writer) (int, error) {
	_, _ = io.WriteString(out, "trained\n")
	return 0, nil
}
func (stubBackend) Launch(ctx context.Context, inv manager.Invocation, logPath string) (manager.Handle, error) {
	return manager.Handle{PID: 4242}, nil
}
func (stubBackend) Terminate(ctx context.Context, h manager.Handle) error { return nil }
func (stubBackend) Check(ctx context.Context) (string, error)            { return "stub", nil }

func portOf(t *testing.T, raw string) int {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	p, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	return p
}
