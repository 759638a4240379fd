package backend

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// Pdftotext runs poppler's pdftotext for a single page, either in -layout mode
// (layout-aware) or -raw mode (content stream order).
type Pdftotext struct {
	info
	cfg    Config
	runner Runner
	logger *slog.Logger
	layout bool
	probe  probeCache
}

func NewPdftotext(cfg Config, runner Runner, layout bool, logger *slog.Logger) *Pdftotext {
	if logger == nil {
		logger = slog.Default()
	}
	i := info{id: constants.BackendPdftotext, cap: constants.CapabilityText, class: constants.ClassPlain}
	if layout {
		i = info{id: constants.BackendPdftotextLayout, cap: constants.CapabilityText, class: constants.ClassLayout}
	}
	return &Pdftotext{info: i, cfg: cfg.withDefaults(), runner: runner, layout: layout, logger: logger}
}

func (p *Pdftotext) Probe(context.Context) bool {
	return p.probe.get(func() bool {
		_, err := p.runner.LookPath(p.cfg.Pdftotext)
		return err == nil
	})
}

func (p *Pdftotext) Extract(ctx context.Context, page Page) entity.Candidate {
	text, err := pageText(ctx, p.runner, p.cfg, page, p.layout)
	if err != nil {
		return p.fail(page, "pdftotext: %v", err)
	}
	if strings.TrimSpace(text) == "" {
		return p.fail(page, "no text layer")
	}
	return entity.Candidate{Text: text, WordCount: entity.CountWords(text)}
}

// pageText shells out as: pdftotext -f N -l N [-layout|-raw] -enc UTF-8 -eol unix <path> -
func pageText(ctx context.Context, runner Runner, cfg Config, page Page, layout bool) (string, error) {
	n := strconv.Itoa(page.Number)
	mode := "-raw"
	if layout {
		mode = "-layout"
	}
	out, errb, err := runner.Run(ctx, cfg.Pdftotext, "-f", n, "-l", n, mode, "-enc", "UTF-8", "-eol", "unix", page.Doc.SourcePath, "-")
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return "", &toolError{err: err, stderr: truncate(msg, 512)}
		}
		return "", err
	}
	// a trailing form feed separates pages
	return strings.TrimRight(string(out), "\f"), nil
}

type toolError struct {
	err    error
	stderr string
}

func (e *toolError) Error() string { return e.err.Error() + ": " + e.stderr }
func (e *toolError) Unwrap() error { return e.err }
