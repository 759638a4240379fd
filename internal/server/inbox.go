package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/report-facts/internal/async"
)

// ServeInbox forwards watcher paths to the queue until ctx ends or the event
// channel closes. It returns the number of jobs enqueued.
func ServeInbox(ctx context.Context, events <-chan string, errs <-chan error, q async.Queue, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	n := 0
	for {
		select {
		case <-ctx.Done():
			return n
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("inbox watcher error", "error", err)
		case path, ok := <-events:
			if !ok {
				return n
			}
			job := async.Job{Path: path, SubmittedAt: time.Now(), TraceID: uuid.NewString()}
			if err := q.Enqueue(ctx, job); err != nil {
				logger.Error("failed to enqueue document", "path", path, "error", err)
				continue
			}
			n++
		}
	}
}
