//go:build ocr

package backend

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// Gosseract recognizes rendered pages through the libtesseract bindings.
// Build with -tags ocr (requires cgo and libtesseract).
type Gosseract struct {
	info
	cfg    Config
	runner Runner
	logger *slog.Logger
	probe  probeCache
}

func NewGosseract(cfg Config, runner Runner, logger *slog.Logger) *Gosseract {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gosseract{
		info:   info{id: constants.BackendGosseract, cap: constants.CapabilityOCR, class: constants.ClassOCR},
		cfg:    cfg.withDefaults(),
		runner: runner,
		logger: logger,
	}
}

func (g *Gosseract) Probe(context.Context) bool {
	return g.probe.get(func() bool {
		if _, err := g.runner.LookPath(g.cfg.Pdftoppm); err != nil {
			return false
		}
		client := gosseract.NewClient()
		defer client.Close()
		return client.Version() != ""
	})
}

func (g *Gosseract) Extract(ctx context.Context, page Page) entity.Candidate {
	img, cleanup, err := renderPage(ctx, g.runner, g.cfg, page)
	if err != nil {
		return g.fail(page, "%v", err)
	}
	defer cleanup()

	data, err := os.ReadFile(img)
	if err != nil {
		return g.fail(page, "read render: %v", err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	if g.cfg.TessdataDir != "" {
		if err := client.SetTessdataPrefix(g.cfg.TessdataDir); err != nil {
			return g.fail(page, "gosseract: %v", err)
		}
	}
	if err := client.SetLanguage(g.cfg.Lang); err != nil {
		return g.fail(page, "gosseract: %v", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return g.fail(page, "gosseract: %v", err)
	}
	text, err := client.Text()
	if err != nil {
		return g.fail(page, "gosseract: %v", err)
	}
	if strings.TrimSpace(text) == "" {
		return g.fail(page, "ocr produced no text")
	}
	return entity.Candidate{Text: text, WordCount: entity.CountWords(text)}
}
