package manager

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"rasad/pkg/types"
)

// InferenceRegistry tracks at most one inference endpoint per project.
type InferenceRegistry struct {
	mu        sync.Mutex
	instances map[string]*Instance

	backend      Backend
	projects     *ProjectStore
	logsDir      string
	settle       time.Duration
	probe        bool
	readyTimeout time.Duration
	portStart    int
	portEnd      int
	httpClient   *http.Client
	publisher    EventPublisher
	log          zerolog.Logger
	now          func() time.Time
}

// Status reports the endpoint of name. Reserved slots whose launch has not
// finished are reported as not running.
func (r *InferenceRegistry) Status(name string) types.InferenceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst := r.instances[name]
	if inst == nil || !inst.ready {
		return types.InferenceStatus{Project: name, Running: false, Mode: string(r.backend.Mode())}
	}
	return inst.status()
}

// List returns the running endpoints sorted by project.
func (r *InferenceRegistry) List() []types.InferenceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.InferenceStatus, 0, len(r.instances))
	for _, inst := range r.instances {
		if inst.ready {
			out = append(out, inst.status())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Project < out[j].Project })
	return out
}

// port returns the port of the running endpoint of name.
func (r *InferenceRegistry) port(name string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst := r.instances[name]
	if inst == nil || !inst.ready {
		return 0, false
	}
	return inst.Port, true
}

// Start launches the endpoint of name. Port 0 picks a free one from the
// configured range. The name is reserved before launching, so concurrent
// starts of one project yield exactly one success; any failure releases it.
func (r *InferenceRegistry) Start(ctx context.Context, name string, port int) (types.InferenceDescriptor, error) {
	dir, err := r.projects.Validate(name)
	if err != nil {
		return types.InferenceDescriptor{}, err
	}
	if port < 0 || port > 65535 {
		return types.InferenceDescriptor{}, ErrValidation("invalid port %d", port)
	}

	r.mu.Lock()
	if _, exists := r.instances[name]; exists {
		r.mu.Unlock()
		inferenceStartsTotal.WithLabelValues("conflict").Inc()
		return types.InferenceDescriptor{}, ErrConflict("inference for %q already running", name)
	}
	if port == 0 {
		if port, err = r.pickPortLocked(); err != nil {
			r.mu.Unlock()
			inferenceStartsTotal.WithLabelValues("error").Inc()
			return types.InferenceDescriptor{}, err
		}
	}
	inst := &Instance{Project: name, Port: port, Mode: r.backend.Mode()}
	r.instances[name] = inst
	r.mu.Unlock()

	desc, err := r.launch(context.WithoutCancel(ctx), inst, dir)
	if err != nil {
		r.release(name, inst)
		inferenceStartsTotal.WithLabelValues("error").Inc()
		r.log.Warn().Err(err).Str("project", name).Int("port", port).Msg("inference start failed")
		r.publisher.Publish(newEvent("inference_start_failed", name, map[string]any{"port": port, "error": err.Error()}))
		return types.InferenceDescriptor{}, err
	}
	inferenceStartsTotal.WithLabelValues("ok").Inc()
	return desc, nil
}

func (r *InferenceRegistry) launch(ctx context.Context, inst *Instance, dir string) (types.InferenceDescriptor, error) {
	name, port := inst.Project, inst.Port
	inv, err := r.backend.Command(OpServe, name, dir, port)
	if err != nil {
		return types.InferenceDescriptor{}, err
	}
	logPath := filepath.Join(r.logsDir, fmt.Sprintf("rasa-%s-%d.log", name, port))
	h, err := r.backend.Launch(ctx, inv, logPath)
	if err != nil {
		return types.InferenceDescriptor{}, err
	}
	if err := r.waitReady(ctx, port); err != nil {
		r.terminate(ctx, name, h)
		return types.InferenceDescriptor{}, err
	}

	r.mu.Lock()
	if r.instances[name] != inst {
		// Stopped while launching.
		r.mu.Unlock()
		r.terminate(ctx, name, h)
		return types.InferenceDescriptor{}, ErrExecution(fmt.Sprintf("inference for %q stopped during start", name), nil)
	}
	inst.PID = h.PID
	inst.ContainerID = h.ContainerID
	inst.StartedAt = r.now()
	inst.ready = true
	desc := inst.Descriptor()
	inferenceInstances.Set(float64(r.readyCountLocked()))
	r.mu.Unlock()

	r.log.Info().Str("project", name).Int("port", port).Int("pid", h.PID).Str("container_id", h.ContainerID).Msg("inference started")
	r.publisher.Publish(newEvent("inference_started", name, map[string]any{"port": port, "pid": h.PID, "container_id": h.ContainerID}))
	return desc, nil
}

// Stop terminates the endpoint of name and reports whether one was
// registered. Termination failures are logged; the entry is always removed.
func (r *InferenceRegistry) Stop(ctx context.Context, name string) bool {
	r.mu.Lock()
	inst := r.instances[name]
	if inst == nil {
		r.mu.Unlock()
		return false
	}
	delete(r.instances, name)
	h := Handle{PID: inst.PID, ContainerID: inst.ContainerID}
	ready := inst.ready
	inferenceInstances.Set(float64(r.readyCountLocked()))
	r.mu.Unlock()

	if ready {
		r.terminate(ctx, name, h)
	}
	r.log.Info().Str("project", name).Msg("inference stopped")
	r.publisher.Publish(newEvent("inference_stopped", name, nil))
	return true
}

// StopAll stops every registered endpoint.
func (r *InferenceRegistry) StopAll(ctx context.Context) {
	r.mu.Lock()
	names := make([]string, 0, len(r.instances))
	for n := range r.instances {
		names = append(names, n)
	}
	r.mu.Unlock()
	for _, n := range names {
		r.Stop(ctx, n)
	}
}

func (r *InferenceRegistry) terminate(ctx context.Context, name string, h Handle) {
	if err := r.backend.Terminate(ctx, h); err != nil {
		r.log.Warn().Err(err).Str("project", name).Msg("inference stop")
		r.publisher.Publish(newEvent("inference_stop_warning", name, map[string]any{"error": err.Error()}))
	}
}

func (r *InferenceRegistry) release(name string, inst *Instance) {
	r.mu.Lock()
	if r.instances[name] == inst {
		delete(r.instances, name)
	}
	r.mu.Unlock()
}

// pickPortLocked draws a random port from the range, skipping ports held by
// other registered projects.
func (r *InferenceRegistry) pickPortLocked() (int, error) {
	used := make(map[int]bool, len(r.instances))
	for _, inst := range r.instances {
		used[inst.Port] = true
	}
	span := r.portEnd - r.portStart + 1
	if len(used) < span {
		for range 64 {
			p := r.portStart + rand.IntN(span)
			if !used[p] {
				return p, nil
			}
		}
		for p := r.portStart; p <= r.portEnd; p++ {
			if !used[p] {
				return p, nil
			}
		}
	}
	return 0, ErrExecution(fmt.Sprintf("no free port in range %d-%d", r.portStart, r.portEnd), nil)
}

func (r *InferenceRegistry) readyCountLocked() int {
	n := 0
	for _, inst := range r.instances {
		if inst.ready {
			n++
		}
	}
	return n
}

func (in *Instance) status() types.InferenceStatus {
	st := types.InferenceStatus{
		Project:   in.Project,
		Running:   true,
		Mode:      string(in.Mode),
		StartedAt: in.StartedAt.Unix(),
	}
	port := in.Port
	st.Port = &port
	if in.PID != 0 {
		pid := in.PID
		st.PID = &pid
	}
	if in.ContainerID != "" {
		id := in.ContainerID
		st.ContainerID = &id
	}
	return st
}
