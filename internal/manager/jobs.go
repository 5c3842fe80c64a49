package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"rasad/internal/common/fsutil"
)

var jobIDRE = regexp.MustCompile(`^train-[A-Za-z0-9_-]{1,64}-[0-9]+-[0-9]{4}$`)

// archiveTimeout bounds one log upload.
const archiveTimeout = 2 * time.Minute

// JobTracker owns training job records and their log files.
type JobTracker struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string

	logsDir   string
	backend   Backend
	projects  *ProjectStore
	archiver  LogArchiver
	publisher EventPublisher
	log       zerolog.Logger
	now       func() time.Time

	// wg tracks background training and archive uploads.
	wg sync.WaitGroup
}

// Submit runs a training job to completion and returns its terminal record.
// A non-zero exit is reported through the record, not the error.
func (t *JobTracker) Submit(ctx context.Context, name string) (Job, error) {
	j, inv, f, err := t.prepare(name)
	if err != nil {
		return Job{}, err
	}
	return t.run(ctx, j, inv, f), nil
}

// Start registers a training job and runs it in the background, detached
// from ctx cancellation. The returned record is in the running state.
func (t *JobTracker) Start(ctx context.Context, name string) (Job, error) {
	j, inv, f, err := t.prepare(name)
	if err != nil {
		return Job{}, err
	}
	t.mu.RLock()
	snapshot := *j
	t.mu.RUnlock()
	bg := context.WithoutCancel(ctx)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run(bg, j, inv, f)
	}()
	return snapshot, nil
}

// Get returns a copy of one job record.
func (t *JobTracker) Get(id string) (Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	j, ok := t.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// List returns copies of all job records in submission order.
func (t *JobTracker) List() []Job {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Job, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.jobs[id])
	}
	return out
}

// LogPath maps a job id to its log file. Ids that do not have the job id
// shape are rejected, so the result never leaves the logs directory.
func (t *JobTracker) LogPath(id string) (string, error) {
	if !jobIDRE.MatchString(id) {
		return "", ErrValidation("invalid job id %q", id)
	}
	return filepath.Join(t.logsDir, id+".log"), nil
}

// OpenLog opens the log of a job. Logs of jobs from earlier runs of the
// service remain readable.
func (t *JobTracker) OpenLog(id string) (*os.File, error) {
	p, err := t.LogPath(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound("log", id)
		}
		return nil, err
	}
	return f, nil
}

// Wait blocks until background jobs and archive uploads have finished.
func (t *JobTracker) Wait() { t.wg.Wait() }

func (t *JobTracker) prepare(name string) (*Job, Invocation, *os.File, error) {
	dir, err := t.projects.Validate(name)
	if err != nil {
		return nil, Invocation{}, nil, err
	}
	inv, err := t.backend.Command(OpTrain, name, dir, 0)
	if err != nil {
		return nil, Invocation{}, nil, err
	}

	t.mu.Lock()
	id, err := t.newIDLocked(name)
	if err != nil {
		t.mu.Unlock()
		return nil, Invocation{}, nil, err
	}
	logPath := filepath.Join(t.logsDir, id+".log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		t.mu.Unlock()
		return nil, Invocation{}, nil, ErrExecution("create job log", err)
	}
	j := &Job{ID: id, Project: name, Status: JobRunning, LogPath: logPath, StartedAt: t.now()}
	t.jobs[id] = j
	t.order = append(t.order, id)
	t.mu.Unlock()

	writeLogHeader(f, t.backend.Mode(), dir, inv)
	trainingJobsRunning.Inc()
	t.log.Info().Str("job_id", id).Str("project", name).Str("cmd", inv.String()).Msg("training started")
	t.publisher.Publish(newEvent("job_started", name, map[string]any{"job_id": id}))
	return j, inv, f, nil
}

// newIDLocked returns an unused job id; the random suffix is redrawn on
// collision with a tracked job or an existing log file.
func (t *JobTracker) newIDLocked(name string) (string, error) {
	ts := t.now().Unix()
	for range 100 {
		id := fmt.Sprintf("train-%s-%d-%d", name, ts, 1000+rand.IntN(9000))
		if _, taken := t.jobs[id]; taken {
			continue
		}
		if fsutil.PathExists(filepath.Join(t.logsDir, id+".log")) {
			continue
		}
		return id, nil
	}
	return "", ErrExecution("could not allocate job id for "+name, nil)
}

func (t *JobTracker) run(ctx context.Context, j *Job, inv Invocation, f *os.File) Job {
	code, runErr := t.backend.Run(ctx, inv, f)
	status := JobSucceeded
	if runErr != nil {
		code = -1
	}
	if runErr != nil || code != 0 {
		status = JobFailed
	}
	writeLogFooter(f, status, code, runErr)
	_ = f.Close()

	t.mu.Lock()
	j.Status = status
	j.ExitCode = &code
	j.FinishedAt = t.now()
	if runErr != nil {
		j.Err = runErr.Error()
	}
	snapshot := *j
	t.mu.Unlock()

	trainingJobsRunning.Dec()
	trainingJobsTotal.WithLabelValues(string(status)).Inc()
	trainingDuration.Observe(snapshot.FinishedAt.Sub(snapshot.StartedAt).Seconds())
	ev := t.log.Info()
	if status == JobFailed {
		ev = t.log.Warn()
	}
	ev.Str("job_id", j.ID).Str("status", string(status)).Int("exit_code", code).Err(runErr).Msg("training finished")
	t.publisher.Publish(newEvent("job_finished", j.Project, map[string]any{
		"job_id":    j.ID,
		"status":    string(status),
		"exit_code": code,
	}))
	t.archive(ctx, snapshot)
	return snapshot
}

func (t *JobTracker) archive(ctx context.Context, j Job) {
	if t.archiver == nil {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
		defer cancel()
		if err := t.archiver.Archive(actx, j.ID, j.LogPath); err != nil {
			archiveFailuresTotal.Inc()
			t.log.Warn().Err(err).Str("job_id", j.ID).Msg("archive job log")
		}
	}()
}

func writeLogHeader(w io.Writer, mode Mode, projectDir string, inv Invocation) {
	fmt.Fprintf(w, "Mode: %s\n", mode)
	fmt.Fprintf(w, "Project: %s\n", projectDir)
	fmt.Fprintf(w, "$ %s\n\n", inv.String())
}

func writeLogFooter(w io.Writer, status JobStatus, code int, runErr error) {
	if runErr != nil {
		fmt.Fprintf(w, "\nError: %v\n", runErr)
	}
	fmt.Fprintf(w, "\nStatus: %s (exit code %d)\n", status, code)
}
