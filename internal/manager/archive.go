package manager

import "context"

// LogArchiver copies a finished job log to durable storage. Failures never
// affect the job outcome.
type LogArchiver interface {
	Archive(ctx context.Context, jobID, path string) error
}
