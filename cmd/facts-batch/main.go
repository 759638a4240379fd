package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joseph-ayodele/report-facts/internal/backend"
	"github.com/joseph-ayodele/report-facts/internal/common"
	"github.com/joseph-ayodele/report-facts/internal/export"
	"github.com/joseph-ayodele/report-facts/internal/extract"
	"github.com/joseph-ayodele/report-facts/internal/ingest"
	"github.com/joseph-ayodele/report-facts/internal/pipeline"
	"github.com/joseph-ayodele/report-facts/internal/registry"
	repo "github.com/joseph-ayodele/report-facts/internal/repository"
	"github.com/joseph-ayodele/report-facts/internal/server"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		inmem  = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir    = flag.String("dir", "", "directory to process reports from (required)")
		out    = flag.String("out", "", "output directory (optional, defaults to <dir>-facts next to dir)")
		force  = flag.Bool("force", false, "re-extract documents whose content is already stored")
		hidden = flag.Bool("hidden", false, "include hidden files and directories")
		noXLSX = flag.Bool("no-xlsx", false, "skip the per-document workbook")
	)
	flag.Parse()

	// Validate required flags
	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		clean := filepath.Clean(*dir)
		*out = filepath.Join(filepath.Dir(clean), filepath.Base(clean)+"-facts")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := common.LoadConfig()
	opts := extract.OptionsFromConfig(cfg.Extraction)
	if err := opts.Validate(); err != nil {
		logger.Error("invalid extraction configuration", "error", err)
		os.Exit(2)
	}

	db, err := server.ConnectDB(ctx, cfg.Database, *inmem, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer server.CloseDB(db, logger)

	// Wire repositories
	docsRepo := repo.NewDocumentRepository(db, logger)
	runsRepo := repo.NewRunRepository(db, logger)

	bcfg := backend.ConfigFrom(cfg.OCR)
	reg := registry.New(ctx, backend.Defaults(bcfg, nil, logger), logger)
	if !reg.HasText() {
		logger.Error("no text backend is available")
		os.Exit(1)
	}

	output := common.OutputConfig{Dir: *out, WriteFiles: true, WriteXLSX: !*noXLSX}
	stage := pipeline.NewStage(backend.NewLoader(bcfg, nil, logger), reg, docsRepo, runsRepo,
		export.NewService(docsRepo, logger), output, logger)
	usecase := ingest.NewUsecase(stage, opts, logger)

	logger.Info("starting batch", "dir", *dir, "out", *out, "force", *force)
	results, stats, err := usecase.IngestDirectory(ctx, *dir, !*hidden, *force)
	if err != nil {
		logger.Error("failed to process directory", "error", err)
		os.Exit(1)
	}

	var scoreSum float64
	extracted := 0
	for _, r := range results {
		if r.Err == "" && !r.Deduplicated {
			scoreSum += r.OverallScore
			extracted++
		}
	}
	avg := 0.0
	if extracted > 0 {
		avg = scoreSum / float64(extracted)
	}

	// Log summary
	logger.Info("batch processing complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
		"average_score", avg,
		"output_dir", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Documents found: %d\n", stats.Matched)
	fmt.Printf("- Extracted: %d\n", extracted)
	fmt.Printf("- Already stored: %d\n", stats.Deduplicated)
	fmt.Printf("- Failures: %d\n", stats.Failed)
	fmt.Printf("- Average quality: %.3f\n", avg)
	fmt.Printf("- Output: %s\n", *out)
	if stats.Failed > 0 {
		os.Exit(1)
	}
}
