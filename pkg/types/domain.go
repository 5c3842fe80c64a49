package types

// InferenceStatus describes the inference endpoint of one project.
// All fields except Running and Mode are empty when nothing is running.
type InferenceStatus struct {
	// example: demo
	Project string `json:"project,omitempty" example:"demo"`
	// example: true
	Running bool `json:"running" example:"true"`
	// Host port of the running endpoint.
	// example: 5321
	Port *int `json:"port" example:"5321"`
	// Process id (local mode).
	// example: 12345
	PID *int `json:"pid" example:"12345"`
	// Container id (container mode).
	// example: 3f2a9c0d1b7e
	ContainerID *string `json:"container_id" example:"3f2a9c0d1b7e"`
	// Execution mode, docker or local.
	// example: docker
	Mode string `json:"mode" example:"docker"`
	// Start time (unix seconds), zero when not running.
	// example: 1700000000
	StartedAt int64 `json:"started_at,omitempty" example:"1700000000"`
}

// InferenceDescriptor is returned by a successful start.
type InferenceDescriptor struct {
	Project     string `json:"project" example:"demo"`
	Port        int    `json:"port" example:"5321"`
	PID         int    `json:"pid,omitempty" example:"12345"`
	ContainerID string `json:"container_id,omitempty" example:"3f2a9c0d1b7e"`
}

// Job describes a training job.
type Job struct {
	// example: train-demo-1700000000-4821
	ID string `json:"id" example:"train-demo-1700000000-4821"`
	// example: demo
	Project string `json:"project" example:"demo"`
	// running, succeeded or failed.
	// example: succeeded
	Status string `json:"status" example:"succeeded"`
	// Exit code of the training process, nil while running.
	// example: 0
	ExitCode *int `json:"exit_code,omitempty" example:"0"`
	// example: /srv/rasad/logs/train-demo-1700000000-4821.log
	LogPath string `json:"log_path" example:"/srv/rasad/logs/train-demo-1700000000-4821.log"`
	// example: 1700000000
	StartedAt int64 `json:"started_at" example:"1700000000"`
	// example: 1700000300
	FinishedAt int64 `json:"finished_at,omitempty" example:"1700000300"`
	// Launch error, when the toolchain could not be started.
	Error string `json:"error,omitempty"`
}

// JobsResponse wraps GET /api/jobs.
type JobsResponse struct {
	Jobs []Job `json:"jobs"`
}

// InferenceListResponse wraps GET /api/inference.
type InferenceListResponse struct {
	Instances []InferenceStatus `json:"instances"`
}

// RuntimeInfo is the effective runtime configuration exposed for debugging.
type RuntimeInfo struct {
	UseDocker    bool   `json:"use_docker"`
	ContainerAPI bool   `json:"container_api"`
	DockerBin    string `json:"docker_bin"`
	RasaImage    string `json:"rasa_image"`
	RasaBin      string `json:"rasa_bin,omitempty"`
	Workspace    string `json:"workspace"`
	LogsDir      string `json:"logs_dir"`
}
