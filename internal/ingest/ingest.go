package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/report-facts/internal/entity"
	"github.com/joseph-ayodele/report-facts/internal/extract"
)

// FileResult is the per-file ingest outcome.
type FileResult struct {
	Path         string
	DocumentID   uuid.UUID
	Deduplicated bool
	HashHex      string
	OverallScore float64
	Took         time.Duration
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Processor is the part of the pipeline stage the ingest use case drives.
type Processor interface {
	Run(ctx context.Context, path string, opts extract.Options) (*entity.DocumentResult, error)
	Seen(ctx context.Context, path string) (*entity.DocumentSummary, bool, error)
}

type Usecase struct {
	Proc    Processor
	Options extract.Options
	Log     *slog.Logger
}

func NewUsecase(proc Processor, opts extract.Options, logger *slog.Logger) *Usecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &Usecase{Proc: proc, Options: opts, Log: logger}
}

// IngestPath extracts one file unless its content is already stored and
// force is false.
func (u *Usecase) IngestPath(ctx context.Context, path string, force bool) (FileResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileResult{Path: path}, err
	}
	out := FileResult{Path: abs}
	if !force {
		sum, seen, err := u.Proc.Seen(ctx, abs)
		if err != nil {
			return out, err
		}
		if seen {
			out.DocumentID = sum.ID
			out.HashHex = sum.ContentHash
			out.OverallScore = sum.OverallScore
			out.Deduplicated = true
			u.Log.Info("ingest.skip.known", "path", abs, "document_id", sum.ID)
			return out, nil
		}
	}
	start := time.Now()
	res, err := u.Proc.Run(ctx, abs, u.Options)
	out.Took = time.Since(start)
	if err != nil {
		return out, err
	}
	out.DocumentID = res.Document.ID
	out.HashHex = res.Document.ContentHash
	out.OverallScore = res.Quality.OverallScore
	return out, nil
}
