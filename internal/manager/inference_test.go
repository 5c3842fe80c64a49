package manager

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestStartStatusStop(t *testing.T) {
	fb := newFakeBackend()
	m := newTestManager(t, fb, ManagerConfig{})
	writeProject(t, m.Projects().Root(), "demo")

	if st := m.Status("demo"); st.Running || st.Port != nil || st.Mode != "local" {
		t.Fatalf("expected idle status, got %+v", st)
	}
	desc, err := m.StartInference(context.Background(), "demo", 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if desc.Port < 5005 || desc.Port > 5999 || desc.PID == 0 || desc.Project != "demo" {
		t.Fatalf("unexpected descriptor %+v", desc)
	}
	st := m.Status("demo")
	if !st.Running || st.Port == nil || *st.Port != desc.Port || st.PID == nil || *st.PID != desc.PID || st.ContainerID != nil {
		t.Fatalf("unexpected status %+v", st)
	}
	if len(fb.launches) != 1 || fb.launches[0].Port != desc.Port {
		t.Fatalf("unexpected launches %+v", fb.launches)
	}
	if got := m.Instances(); len(got) != 1 || got[0].Project != "demo" {
		t.Fatalf("instances = %+v", got)
	}

	if !m.StopInference(context.Background(), "demo") {
		t.Fatalf("stop should report true")
	}
	if st := m.Status("demo"); st.Running {
		t.Fatalf("expected stopped, got %+v", st)
	}
	if m.StopInference(context.Background(), "demo") {
		t.Fatalf("second stop should report false")
	}
	if fb.terminatedCount() != 1 || fb.terminated[0].PID != desc.PID {
		t.Fatalf("unexpected terminations %+v", fb.terminated)
	}
}

func TestStatusContainerMode(t *testing.T) {
	fb := newFakeBackend()
	fb.mode = ModeDocker
	m := newTestManager(t, fb, ManagerConfig{})
	writeProject(t, m.Projects().Root(), "demo")
	desc, err := m.StartInference(context.Background(), "demo", 5100)
	if err != nil {
		t.Fatal(err)
	}
	st := m.Status("demo")
	if st.Mode != "docker" || st.ContainerID == nil || *st.ContainerID != desc.ContainerID || st.PID != nil || *st.Port != 5100 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestStartTwiceConflicts(t *testing.T) {
	fb := newFakeBackend()
	m := newTestManager(t, fb, ManagerConfig{})
	writeProject(t, m.Projects().Root(), "demo")
	desc, err := m.StartInference(context.Background(), "demo", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.StartInference(context.Background(), "demo", 0); !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	st := m.Status("demo")
	if !st.Running || *st.Port != desc.Port {
		t.Fatalf("failed second start must not change status: %+v", st)
	}
	if len(fb.launches) != 1 {
		t.Fatalf("second start must not launch")
	}
}

func TestConcurrentStartsExactlyOneWins(t *testing.T) {
	fb := newFakeBackend()
	fb.launchDelay = 20 * time.Millisecond
	m := newTestManager(t, fb, ManagerConfig{})
	writeProject(t, m.Projects().Root(), "demo")

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.StartInference(context.Background(), "demo", 0)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	ok, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Fatalf("ok=%d conflicts=%d", ok, conflicts)
	}
}

func TestStartFailureLeavesNoEntry(t *testing.T) {
	fb := newFakeBackend()
	fb.launchErr = ErrExecution("docker run failed", errors.New("port is already allocated"))
	pub := NewMemoryPublisher()
	m := newTestManager(t, fb, ManagerConfig{Publisher: pub})
	writeProject(t, m.Projects().Root(), "demo")
	if _, err := m.StartInference(context.Background(), "demo", 5005); !IsExecution(err) {
		t.Fatalf("expected execution error, got %v", err)
	}
	if m.Status("demo").Running {
		t.Fatalf("failed start must not register")
	}
	fb.launchErr = nil
	if _, err := m.StartInference(context.Background(), "demo", 0); err != nil {
		t.Fatalf("start after failure: %v", err)
	}
	if names := pub.Names(); names[0] != "inference_start_failed" {
		t.Fatalf("events = %v", names)
	}
}

func TestStartValidation(t *testing.T) {
	fb := newFakeBackend()
	m := newTestManager(t, fb, ManagerConfig{})
	if _, err := m.StartInference(context.Background(), "ghost", 0); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	dir := writeProject(t, m.Projects().Root(), "nodata")
	_ = os.RemoveAll(filepath.Join(dir, "data"))
	if _, err := m.StartInference(context.Background(), "nodata", 0); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	writeProject(t, m.Projects().Root(), "demo")
	if _, err := m.StartInference(context.Background(), "demo", 70000); !IsValidation(err) {
		t.Fatalf("expected validation error for port, got %v", err)
	}
	if len(fb.launches) != 0 {
		t.Fatalf("nothing should launch")
	}
}

func TestStopTerminateFailureStillClears(t *testing.T) {
	fb := newFakeBackend()
	fb.mode = ModeDocker
	fb.terminateErr = errors.New("No such container: cid")
	pub := NewMemoryPublisher()
	m := newTestManager(t, fb, ManagerConfig{Publisher: pub})
	writeProject(t, m.Projects().Root(), "demo")
	if _, err := m.StartInference(context.Background(), "demo", 0); err != nil {
		t.Fatal(err)
	}
	if !m.StopInference(context.Background(), "demo") {
		t.Fatalf("stop should report true")
	}
	if m.Status("demo").Running {
		t.Fatalf("entry must be removed even when terminate fails")
	}
	found := false
	for _, n := range pub.Names() {
		if n == "inference_stop_warning" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected inference_stop_warning event, got %v", pub.Names())
	}
}

func TestPortAllocationAvoidsRegisteredPorts(t *testing.T) {
	fb := newFakeBackend()
	m := newTestManager(t, fb, ManagerConfig{PortStart: 7000, PortEnd: 7001})
	for _, n := range []string{"a", "b", "c"} {
		writeProject(t, m.Projects().Root(), n)
	}
	da, err := m.StartInference(context.Background(), "a", 0)
	if err != nil {
		t.Fatal(err)
	}
	db, err := m.StartInference(context.Background(), "b", 0)
	if err != nil {
		t.Fatal(err)
	}
	if da.Port == db.Port {
		t.Fatalf("ports collide: %d", da.Port)
	}
	if _, err := m.StartInference(context.Background(), "c", 0); !IsExecution(err) {
		t.Fatalf("expected exhausted range error, got %v", err)
	}
	if m.Status("c").Running {
		t.Fatalf("exhausted range must not register")
	}
}

func TestStopDuringLaunch(t *testing.T) {
	fb := newFakeBackend()
	fb.launchGate = make(chan struct{})
	m := newTestManager(t, fb, ManagerConfig{})
	writeProject(t, m.Projects().Root(), "demo")
	errc := make(chan error, 1)
	go func() {
		_, err := m.StartInference(context.Background(), "demo", 0)
		errc <- err
	}()
	waitFor(t, 2*time.Second, func() bool {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		return len(fb.launches) == 1
	})
	if m.Status("demo").Running {
		t.Fatalf("launching endpoint must not be reported as running")
	}
	if !m.StopInference(context.Background(), "demo") {
		t.Fatalf("stop of a launching endpoint should report true")
	}
	close(fb.launchGate)
	if err := <-errc; !IsExecution(err) {
		t.Fatalf("expected execution error, got %v", err)
	}
	if fb.terminatedCount() != 1 {
		t.Fatalf("launched process must be terminated")
	}
	if m.Status("demo").Running {
		t.Fatalf("expected not running")
	}
}

func TestSettleDelayApplied(t *testing.T) {
	fb := newFakeBackend()
	m := newTestManager(t, fb, ManagerConfig{SettleDelay: 80 * time.Millisecond})
	writeProject(t, m.Projects().Root(), "demo")
	start := time.Now()
	if _, err := m.StartInference(context.Background(), "demo", 0); err != nil {
		t.Fatal(err)
	}
	if el := time.Since(start); el < 80*time.Millisecond {
		t.Fatalf("start returned after %v, before the settling delay", el)
	}
}

func TestReadyProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Hello from Rasa"))
	}))
	defer srv.Close()
	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())

	fb := newFakeBackend()
	m := newTestManager(t, fb, ManagerConfig{ReadyProbe: true, ReadyTimeout: time.Second})
	writeProject(t, m.Projects().Root(), "demo")
	writeProject(t, m.Projects().Root(), "dead")
	if _, err := m.StartInference(context.Background(), "demo", port); err != nil {
		t.Fatalf("probe against live server: %v", err)
	}

	m.Registry().readyTimeout = 300 * time.Millisecond
	if _, err := m.StartInference(context.Background(), "dead", closedPort(t)); !IsExecution(err) {
		t.Fatalf("expected execution error on probe timeout, got %v", err)
	}
	if m.Status("dead").Running {
		t.Fatalf("probe failure must not register")
	}
	if fb.terminatedCount() != 1 {
		t.Fatalf("probe failure must terminate the launched endpoint")
	}
}

func TestStopAll(t *testing.T) {
	fb := newFakeBackend()
	m := newTestManager(t, fb, ManagerConfig{})
	for _, n := range []string{"a", "b"} {
		writeProject(t, m.Projects().Root(), n)
		if _, err := m.StartInference(context.Background(), n, 0); err != nil {
			t.Fatal(err)
		}
	}
	m.Registry().StopAll(context.Background())
	if len(m.Instances()) != 0 || fb.terminatedCount() != 2 {
		t.Fatalf("StopAll left %d instances, %d terminations", len(m.Instances()), fb.terminatedCount())
	}
}

// closedPort returns a port that had a listener a moment ago.
func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	p := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	return p
}
