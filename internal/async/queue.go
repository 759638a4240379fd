package async

import (
	"context"
	"time"
)

// Job asks a worker to extract one document.
type Job struct {
	Path        string
	Force       bool // extract even if the same content is already stored
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
