package types

import "encoding/json"

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid project name
	Error string `json:"error" example:"invalid project name"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Payload returned by the bot endpoint when a chat call failed upstream.
	Upstream json.RawMessage `json:"upstream,omitempty" swaggertype:"object"`
}

// ProjectsResponse wraps the list returned by GET /api/projects.
type ProjectsResponse struct {
	Projects []string `json:"projects"`
}

// CreateProjectRequest is the body of POST /api/projects.
type CreateProjectRequest struct {
	// Project name, [A-Za-z0-9_-]{1,64}.
	// example: demo
	Name string `json:"name" example:"demo"`
	// Optional template name. Unknown names fall back to the minimal template.
	// example: pt-basic
	Template string `json:"template,omitempty" example:"pt-basic"`
}

// CreateProjectResponse is returned after a project was created.
type CreateProjectResponse struct {
	Created string `json:"created" example:"demo"`
}

// TreeResponse lists project files relative to the project root.
type TreeResponse struct {
	Files []string `json:"files"`
}

// SaveFileResponse is returned by POST /api/projects/{name}/file.
type SaveFileResponse struct {
	Saved string `json:"saved" example:"data/nlu.yml"`
	Bytes int    `json:"bytes" example:"42"`
}

// DeleteFileResponse is returned by DELETE /api/projects/{name}/file.
type DeleteFileResponse struct {
	Deleted string `json:"deleted" example:"data/nlu.yml"`
}

// TrainResponse carries the identifier of an accepted training job.
type TrainResponse struct {
	// example: train-demo-1700000000-4821
	JobID string `json:"job_id" example:"train-demo-1700000000-4821"`
	// Job status at the time of the response.
	// example: running
	Status string `json:"status,omitempty" example:"running"`
}

// StartInferenceRequest is the optional body of POST .../inference/start.
type StartInferenceRequest struct {
	// Host port to publish; a random port in [5005,5999] is chosen when omitted.
	// example: 5005
	Port int `json:"port,omitempty" example:"5005"`
}

// StopInferenceResponse reports whether an instance was stopped.
type StopInferenceResponse struct {
	Stopped bool `json:"stopped" example:"true"`
}

// ChatRequest is forwarded to the running bot's REST channel.
type ChatRequest struct {
	// example: hello
	Message string `json:"message" example:"hello"`
	// example: user
	Sender string `json:"sender,omitempty" example:"user"`
}

// VersionResponse is returned by GET /version.
type VersionResponse struct {
	Version string `json:"version" example:"1.3.0"`
}
