package common

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	ContextKeyRunID    contextKey = "run_id"
	ContextKeyDocument contextKey = "document"
)

// WithRunID adds the extraction run id to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run id from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithDocument adds the document path to the context
func WithDocument(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, ContextKeyDocument, path)
}

// DocumentFromContext extracts the document path from context
func DocumentFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(ContextKeyDocument).(string); ok {
		return p
	}
	return ""
}

// LoggerFrom returns logger annotated with the run id and document carried by ctx.
func LoggerFrom(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if id := RunIDFromContext(ctx); id != "" {
		logger = logger.With("run_id", id)
	}
	if p := DocumentFromContext(ctx); p != "" {
		logger = logger.With("document", p)
	}
	return logger
}
