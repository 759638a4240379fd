package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/backend"
	"github.com/joseph-ayodele/report-facts/internal/common"
	"github.com/joseph-ayodele/report-facts/internal/export"
	"github.com/joseph-ayodele/report-facts/internal/extract"
	"github.com/joseph-ayodele/report-facts/internal/pipeline"
	"github.com/joseph-ayodele/report-facts/internal/registry"
)

func main() {
	var (
		out        = flag.String("out", "", "directory for the JSON file set (optional)")
		xlsx       = flag.Bool("xlsx", false, "also write document.xlsx into -out")
		noOCR      = flag.Bool("no-ocr", false, "never escalate sparse pages to OCR")
		sequential = flag.Bool("sequential", false, "run backends one at a time")
		text       = flag.String("text", "", "comma separated text backends to enable (default all)")
		tables     = flag.String("tables", "", "comma separated table backends to enable (default all)")
		timeout    = flag.Duration("timeout", 30*time.Minute, "overall deadline")
	)
	flag.Parse()

	// JSON record goes to stdout; logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "extract [flags] <report.pdf>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg := common.LoadConfig()
	opts := extract.OptionsFromConfig(cfg.Extraction)
	if *noOCR {
		opts.UseOCR = extract.Bool(false)
	}
	if *sequential {
		opts.ConcurrentExtraction = extract.Bool(false)
	}
	if ids := splitIDs(*text); ids != nil {
		opts.EnabledTextBackends = ids
	}
	if ids := splitIDs(*tables); ids != nil {
		opts.EnabledTableBackends = ids
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	bcfg := backend.ConfigFrom(cfg.OCR)
	reg := registry.New(ctx, backend.Defaults(bcfg, nil, logger), logger)
	output := common.OutputConfig{Dir: *out, WriteFiles: *out != "", WriteXLSX: *out != "" && *xlsx}
	stage := pipeline.NewStage(backend.NewLoader(bcfg, nil, logger), reg, nil, nil, export.NewService(nil, logger), output, logger)

	start := time.Now()
	res, err := stage.Run(ctx, path, opts)
	if err != nil {
		logger.Error("extraction failed", "path", path, "error", err, "duration_ms", time.Since(start).Milliseconds())
		if common.IsConfigurationError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Error("failed to write record", "error", err)
		os.Exit(1)
	}
	logger.Info("extraction OK",
		"pages", res.Document.PageCount,
		"overall_score", res.Quality.OverallScore,
		"facts", res.Statistics.TotalFacts,
		"duration_ms", time.Since(start).Milliseconds())
}

func splitIDs(s string) []constants.BackendID {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var ids []constants.BackendID
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, constants.BackendID(p))
		}
	}
	return ids
}
