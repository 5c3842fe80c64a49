package manager

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"rasad/pkg/types"
)

// Manager is the facade used by the HTTP layer and CLI. It owns one
// ProjectStore, one JobTracker and one InferenceRegistry; each guards its
// own state.
type Manager struct {
	cfg       ManagerConfig
	backend   Backend
	projects  *ProjectStore
	jobs      *JobTracker
	registry  *InferenceRegistry
	publisher EventPublisher
	log       zerolog.Logger
}

func newManager(cfg ManagerConfig, backend Backend, logger zerolog.Logger) *Manager {
	projects := NewProjectStore(cfg.Workspace)
	m := &Manager{
		cfg:       cfg,
		backend:   backend,
		projects:  projects,
		publisher: cfg.Publisher,
		log:       logger.With().Str("component", "manager").Str("mode", string(backend.Mode())).Logger(),
	}
	m.jobs = &JobTracker{
		jobs:      make(map[string]*Job),
		logsDir:   cfg.LogsDir,
		backend:   backend,
		projects:  projects,
		archiver:  cfg.Archiver,
		publisher: cfg.Publisher,
		log:       logger.With().Str("component", "jobs").Logger(),
		now:       time.Now,
	}
	m.registry = &InferenceRegistry{
		instances:    make(map[string]*Instance),
		backend:      backend,
		projects:     projects,
		logsDir:      cfg.LogsDir,
		settle:       cfg.SettleDelay,
		probe:        cfg.ReadyProbe,
		readyTimeout: cfg.ReadyTimeout,
		portStart:    cfg.PortStart,
		portEnd:      cfg.PortEnd,
		httpClient:   cfg.HTTPClient,
		publisher:    cfg.Publisher,
		log:          logger.With().Str("component", "inference").Logger(),
		now:          time.Now,
	}
	return m
}

// Mode reports the execution mode of the configured backend.
func (m *Manager) Mode() Mode { return m.backend.Mode() }

// Projects exposes the project store.
func (m *Manager) Projects() *ProjectStore { return m.projects }

// Jobs exposes the training job tracker.
func (m *Manager) Jobs() *JobTracker { return m.jobs }

// Registry exposes the inference registry.
func (m *Manager) Registry() *InferenceRegistry { return m.registry }

// Ready reports whether the workspace and logs directories are usable.
func (m *Manager) Ready() bool {
	for _, d := range []string{m.cfg.Workspace, m.cfg.LogsDir} {
		fi, err := os.Stat(d)
		if err != nil || !fi.IsDir() {
			return false
		}
	}
	return true
}

// RuntimeInfo returns the effective runtime configuration.
func (m *Manager) RuntimeInfo() types.RuntimeInfo {
	return types.RuntimeInfo{
		UseDocker:    m.backend.Mode() == ModeDocker,
		ContainerAPI: m.cfg.UseDocker && m.cfg.ContainerAPI,
		DockerBin:    m.cfg.DockerBin,
		RasaImage:    m.cfg.Image,
		RasaBin:      m.cfg.RasaBin,
		Workspace:    m.cfg.Workspace,
		LogsDir:      m.cfg.LogsDir,
	}
}

// ListProjects returns the project directory names in the workspace.
func (m *Manager) ListProjects() ([]string, error) { return m.projects.List() }

// CreateProject creates a project, optionally from a template.
func (m *Manager) CreateProject(name, template string) error {
	if err := m.projects.Create(name, template); err != nil {
		return err
	}
	m.emit("project_created", name, map[string]any{"template": template})
	return nil
}

// ProjectTree lists project files relative to the project root.
func (m *Manager) ProjectTree(name string) ([]string, error) { return m.projects.Tree(name) }

// ReadProjectFile returns the content of a confined project file.
func (m *Manager) ReadProjectFile(name, rel string) ([]byte, error) {
	return m.projects.ReadFile(name, rel)
}

// WriteProjectFile replaces a confined project file.
func (m *Manager) WriteProjectFile(name, rel string, data []byte) error {
	return m.projects.WriteFile(name, rel, data)
}

// DeleteProjectFile removes a confined project file.
func (m *Manager) DeleteProjectFile(name, rel string) error {
	return m.projects.DeleteFile(name, rel)
}

// Train submits a training job. With wait set it blocks until the job ends.
func (m *Manager) Train(ctx context.Context, name string, wait bool) (types.Job, error) {
	var (
		j   Job
		err error
	)
	if wait {
		j, err = m.jobs.Submit(ctx, name)
	} else {
		j, err = m.jobs.Start(ctx, name)
	}
	if err != nil {
		return types.Job{}, err
	}
	return j.API(), nil
}

// Job returns one job record.
func (m *Manager) Job(id string) (types.Job, error) {
	j, ok := m.jobs.Get(id)
	if !ok {
		return types.Job{}, ErrNotFound("job", id)
	}
	return j.API(), nil
}

// ListJobs returns all jobs known to this process, oldest first.
func (m *Manager) ListJobs() []types.Job {
	jobs := m.jobs.List()
	out := make([]types.Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.API())
	}
	return out
}

// OpenJobLog opens a job log for reading.
func (m *Manager) OpenJobLog(id string) (*os.File, error) { return m.jobs.OpenLog(id) }

// FollowJobLog streams a job log until the job finishes or ctx ends.
func (m *Manager) FollowJobLog(ctx context.Context, id string, w io.Writer, flush func()) error {
	return m.jobs.FollowLog(ctx, id, w, flush)
}

// Status returns the inference status of a project.
func (m *Manager) Status(name string) types.InferenceStatus { return m.registry.Status(name) }

// Instances lists all registered inference endpoints.
func (m *Manager) Instances() []types.InferenceStatus { return m.registry.List() }

// StartInference launches an inference endpoint; port 0 picks one.
func (m *Manager) StartInference(ctx context.Context, name string, port int) (types.InferenceDescriptor, error) {
	return m.registry.Start(ctx, name, port)
}

// StopInference stops the endpoint of a project, reporting whether one existed.
func (m *Manager) StopInference(ctx context.Context, name string) bool {
	return m.registry.Stop(ctx, name)
}

// Close stops every inference endpoint and waits for background jobs.
func (m *Manager) Close(ctx context.Context) {
	m.registry.StopAll(ctx)
	m.jobs.Wait()
}

func (m *Manager) emit(name, project string, fields map[string]any) {
	m.publisher.Publish(newEvent(name, project, fields))
}
