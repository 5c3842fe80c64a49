package manager

import (
	"time"

	"rasad/pkg/types"
)

// Mode is the execution strategy reported in status views.
type Mode string

const (
	ModeDocker Mode = "docker"
	ModeLocal  Mode = "local"
)

// Op is a logical toolchain operation.
type Op string

const (
	OpTrain Op = "train"
	OpServe Op = "serve"
)

// JobStatus is the lifecycle state of a training job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is a training job record. Copies are handed out; the tracker owns the
// canonical value.
type Job struct {
	ID         string
	Project    string
	Status     JobStatus
	ExitCode   *int
	LogPath    string
	StartedAt  time.Time
	FinishedAt time.Time
	Err        string
}

// Terminal reports whether the job reached succeeded or failed.
func (j Job) Terminal() bool { return j.Status == JobSucceeded || j.Status == JobFailed }

// API converts the record to its wire form.
func (j Job) API() types.Job {
	out := types.Job{
		ID:        j.ID,
		Project:   j.Project,
		Status:    string(j.Status),
		LogPath:   j.LogPath,
		StartedAt: j.StartedAt.Unix(),
		Error:     j.Err,
	}
	if j.ExitCode != nil {
		c := *j.ExitCode
		out.ExitCode = &c
	}
	if !j.FinishedAt.IsZero() {
		out.FinishedAt = j.FinishedAt.Unix()
	}
	return out
}

// Instance is a live (or launching) inference endpoint for one project.
type Instance struct {
	Project     string
	Port        int
	PID         int
	ContainerID string
	Mode        Mode
	StartedAt   time.Time
	// ready is false while the slot is reserved but the launch has not finished.
	ready bool
}

// Descriptor converts the instance to the start response.
func (in *Instance) Descriptor() types.InferenceDescriptor {
	return types.InferenceDescriptor{
		Project:     in.Project,
		Port:        in.Port,
		PID:         in.PID,
		ContainerID: in.ContainerID,
	}
}
