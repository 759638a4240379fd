// Package pipeline is the stage facade: it turns one PDF path into a merged,
// scored and fact-annotated record, and optionally persists and writes it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/backend"
	"github.com/joseph-ayodele/report-facts/internal/common"
	"github.com/joseph-ayodele/report-facts/internal/entity"
	"github.com/joseph-ayodele/report-facts/internal/export"
	"github.com/joseph-ayodele/report-facts/internal/extract"
	"github.com/joseph-ayodele/report-facts/internal/facts"
	"github.com/joseph-ayodele/report-facts/internal/merge"
	"github.com/joseph-ayodele/report-facts/internal/quality"
	"github.com/joseph-ayodele/report-facts/internal/registry"
	"github.com/joseph-ayodele/report-facts/internal/repository"
)

// DocumentLoader reads a document and resolves its page count.
type DocumentLoader interface {
	Load(ctx context.Context, path string) (*entity.Document, error)
}

// Stage wires the engine to storage and output. Docs, Runs and Exporter are
// optional; a nil value skips that step.
type Stage struct {
	Loader   DocumentLoader
	Registry *registry.Registry
	Docs     repository.DocumentRepository
	Runs     repository.RunRepository
	Exporter *export.Service
	Output   common.OutputConfig
	Policy   merge.Policy
	Log      *slog.Logger

	now func() time.Time
}

func NewStage(loader DocumentLoader, reg *registry.Registry, docs repository.DocumentRepository, runs repository.RunRepository, exporter *export.Service, out common.OutputConfig, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{
		Loader:   loader,
		Registry: reg,
		Docs:     docs,
		Runs:     runs,
		Exporter: exporter,
		Output:   out,
		Policy:   merge.DefaultPolicy(),
		Log:      logger,
		now:      time.Now,
	}
}

// Extract runs the engine over every page of path. Configuration problems
// are reported before the document is read; cancellation returns ctx.Err()
// and no result.
func (s *Stage) Extract(ctx context.Context, path string, opts extract.Options) (*entity.DocumentResult, error) {
	return s.extract(ctx, uuid.New(), path, opts)
}

func (s *Stage) extract(ctx context.Context, runID uuid.UUID, path string, opts extract.Options) (*entity.DocumentResult, error) {
	if s.Loader == nil || s.Registry == nil {
		return nil, common.NewConfigurationError("pipeline requires a loader and a registry")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.WithDefaults()
	reg, err := s.Registry.Select(opts.EnabledTextBackends, opts.EnabledTableBackends)
	if err != nil {
		return nil, err
	}
	orch, err := extract.NewOrchestrator(reg, opts, s.Log)
	if err != nil {
		return nil, err
	}

	ctx = common.WithDocument(common.WithRunID(ctx, runID.String()), path)
	log := common.LoggerFrom(ctx, s.Log)
	start := s.clock()

	doc, err := s.Loader.Load(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	log.Info("pipeline.extract.start", "pages", doc.PageCount, "sha256", doc.ContentHash)

	scorer := quality.NewScorer(quality.Config{
		ExpectedWordsPerPage: opts.ExpectedWordsPerPage,
		MinFloor:             opts.MinQualityFloor,
	})
	engine := facts.NewEngine(opts.ContextRadius, s.Log)

	pages := make([]entity.PageResult, doc.PageCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.PageConcurrency)
	for i := range pages {
		n := i + 1
		g.Go(func() error {
			cands, err := orch.ExtractPage(gctx, doc, n)
			if err != nil {
				return err
			}
			page := merge.Merge(n, cands, s.Policy)
			page.Facts = engine.Extract(n, page.Text)
			page.Figures = max(page.Figures, captions(page.Facts))
			page.Quality = scorer.ScorePage(page.Text, len(page.Tables), page.Figures)
			if len(page.FailureReasons) > 0 {
				log.Warn("pipeline.page.degraded", "page", n, "reasons", page.FailureReasons)
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	res := &entity.DocumentResult{
		RunID:       runID,
		Document:    *doc,
		Pages:       pages,
		Quality:     scorer.Report(pages),
		Statistics:  statistics(pages),
		Backends:    reg.Report(),
		Options:     opts.Map(),
		ExtractedAt: s.clock().UTC(),
	}
	res.Duration = res.ExtractedAt.Sub(start)
	res.Document.Data = nil
	log.Info("pipeline.extract.ok",
		"pages", len(pages),
		"overall_score", res.Quality.OverallScore,
		"ocr_pages", res.Quality.OCRPages,
		"failed_pages", res.Quality.FailedPages,
		"facts", res.Statistics.TotalFacts,
		"took", res.Duration)
	return res, nil
}

// Run extracts path, validates the record, persists it and writes the
// configured outputs. The run row ends EXTRACTED or FAILED.
func (s *Stage) Run(ctx context.Context, path string, opts extract.Options) (*entity.DocumentResult, error) {
	runID := uuid.New()
	if s.Runs != nil {
		run, err := s.Runs.Start(ctx, path)
		if err != nil {
			return nil, err
		}
		runID = run.ID
	}

	res, err := s.run(ctx, runID, path, opts)
	if err != nil {
		common.LoggerFrom(common.WithRunID(ctx, runID.String()), s.Log).Error("pipeline.run.failed", "document", path, "error", err)
		if s.Runs != nil {
			if ferr := s.Runs.FinishFailure(context.WithoutCancel(ctx), runID, err.Error()); ferr != nil {
				err = errors.Join(err, ferr)
			}
		}
		return nil, err
	}
	if s.Runs != nil {
		if err := s.Runs.FinishSuccess(ctx, runID, res.Document.ID); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *Stage) run(ctx context.Context, runID uuid.UUID, path string, opts extract.Options) (*entity.DocumentResult, error) {
	res, err := s.extract(ctx, runID, path, opts)
	if err != nil {
		return nil, err
	}
	if err := ValidateRecord(res); err != nil {
		return nil, err
	}
	if s.Docs != nil {
		if err := s.Docs.Save(ctx, res); err != nil {
			return nil, err
		}
	}
	if s.Output.WriteFiles || s.Output.WriteXLSX {
		if _, err := s.writeOutputs(ctx, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Seen reports the stored document with the same content as path, if any.
func (s *Stage) Seen(ctx context.Context, path string) (*entity.DocumentSummary, bool, error) {
	if s.Docs == nil {
		return nil, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, common.NewAppError(common.CodeDocument, "read "+path, err)
	}
	sum, err := s.Docs.FindByHash(ctx, backend.HashContent(data))
	if errors.Is(err, common.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return sum, true, nil
}

// writeOutputs writes the file set and the workbook under Output.Dir.
func (s *Stage) writeOutputs(ctx context.Context, res *entity.DocumentResult) ([]string, error) {
	dir := OutputDir(s.Output.Dir, &res.Document)
	var written []string
	if s.Output.WriteFiles {
		files, err := WriteFiles(dir, res)
		if err != nil {
			return nil, err
		}
		written = append(written, files...)
	}
	if s.Output.WriteXLSX && s.Exporter != nil {
		data, err := s.Exporter.DocumentXLSX(ctx, res)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
		name := filepath.Join(dir, "document.xlsx")
		if err := writeFile(name, data); err != nil {
			return nil, err
		}
		written = append(written, name)
	}
	common.LoggerFrom(ctx, s.Log).Info("pipeline.output.ok", "dir", dir, "files", len(written))
	return written, nil
}

// OutputDir is <root>/<file stem>-<first 12 hex of the hash>.
func OutputDir(root string, doc *entity.Document) string {
	stem := doc.Filename
	if stem == "" {
		stem = filepath.Base(doc.SourcePath)
	}
	stem = stem[:len(stem)-len(filepath.Ext(stem))]
	hash := doc.ContentHash
	if len(hash) > 12 {
		hash = hash[:12]
	}
	return filepath.Join(root, fmt.Sprintf("%s-%s", stem, hash))
}

// captions counts distinct figure numbers captioned on a page. Image
// detection and captions usually describe the same figures, so the page
// keeps the larger of the two counts.
func captions(facts []entity.Fact) int {
	seen := map[string]bool{}
	for _, f := range facts {
		if f.Kind == constants.FactFigure {
			seen[f.Key] = true
		}
	}
	return len(seen)
}

func (s *Stage) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
