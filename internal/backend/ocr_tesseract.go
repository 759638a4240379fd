package backend

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// Tesseract renders the page with pdftoppm and recognizes it with the
// tesseract CLI in TSV mode, so one run yields both text and word confidence.
type Tesseract struct {
	info
	cfg    Config
	runner Runner
	logger *slog.Logger
	probe  probeCache
}

func NewTesseract(cfg Config, runner Runner, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tesseract{
		info:   info{id: constants.BackendTesseract, cap: constants.CapabilityOCR, class: constants.ClassOCR},
		cfg:    cfg.withDefaults(),
		runner: runner,
		logger: logger,
	}
}

func (t *Tesseract) Probe(context.Context) bool {
	return t.probe.get(func() bool {
		if _, err := t.runner.LookPath(t.cfg.Pdftoppm); err != nil {
			return false
		}
		_, err := t.runner.LookPath(t.cfg.Tesseract)
		return err == nil
	})
}

func (t *Tesseract) Extract(ctx context.Context, page Page) entity.Candidate {
	img, cleanup, err := renderPage(ctx, t.runner, t.cfg, page)
	if err != nil {
		return t.fail(page, "%v", err)
	}
	defer cleanup()

	// tesseract <img> stdout -l <lang> [--tessdata-dir d] tsv
	args := []string{img, "stdout", "-l", t.cfg.Lang}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	args = append(args, "tsv")
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return t.fail(page, "tesseract: %v: %s", err, truncate(string(errb), 512))
	}

	text, conf := ParseTSV(string(out))
	if strings.TrimSpace(text) == "" {
		return t.fail(page, "ocr produced no text")
	}
	return entity.Candidate{Text: text, WordCount: entity.CountWords(text), Confidence: conf}
}

// ParseTSV rebuilds text from tesseract TSV output and returns the mean word
// confidence in 0..1. Columns: level page block par line word left top width
// height conf text. A new paragraph starts a blank line.
func ParseTSV(tsv string) (string, float64) {
	var b strings.Builder
	var sum float64
	var n int
	lastPar, lastLine := "", ""

	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue // header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue // word rows only
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}
		par := cols[2] + "." + cols[3]
		line := par + "." + cols[4]
		switch {
		case b.Len() == 0:
		case par != lastPar:
			b.WriteString("\n\n")
		case line != lastLine:
			b.WriteString("\n")
		default:
			b.WriteString(" ")
		}
		b.WriteString(word)
		lastPar, lastLine = par, line

		if c, err := strconv.ParseFloat(cols[10], 64); err == nil && c >= 0 {
			sum += c
			n++
		}
	}
	if n == 0 {
		return b.String(), 0
	}
	return b.String(), sum / float64(n) / 100
}
