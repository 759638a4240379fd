package backend

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

var reColumnGap = regexp.MustCompile(`\s{2,}`)

// minColumnRows is the shortest run of aligned lines accepted as a table.
const minColumnRows = 3

// TextColumns is the generic fallback table backend: it splits the
// pdftotext -layout rendering of a page on runs of spaces and keeps blocks of
// consecutive lines that agree on a column count.
type TextColumns struct {
	info
	cfg    Config
	runner Runner
	logger *slog.Logger
	probe  probeCache
}

func NewTextColumns(cfg Config, runner Runner, logger *slog.Logger) *TextColumns {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextColumns{
		info:   info{id: constants.BackendTextColumns, cap: constants.CapabilityTable, class: constants.ClassGeneric},
		cfg:    cfg.withDefaults(),
		runner: runner,
		logger: logger,
	}
}

func (b *TextColumns) Probe(context.Context) bool {
	return b.probe.get(func() bool {
		_, err := b.runner.LookPath(b.cfg.Pdftotext)
		return err == nil
	})
}

func (b *TextColumns) Extract(ctx context.Context, page Page) entity.Candidate {
	text, err := pageText(ctx, b.runner, b.cfg, page, true)
	if err != nil {
		return b.fail(page, "pdftotext: %v", err)
	}
	tables := ColumnTables(text)
	for i := range tables {
		tables[i].Backend = string(b.id)
	}
	return tableCandidate(tables)
}

// ColumnTables finds whitespace-aligned tables in layout-preserved text.
func ColumnTables(text string) []entity.Table {
	var out []entity.Table
	var block [][]string

	flush := func() {
		if len(block) >= minColumnRows {
			out = append(out, entity.Table{Rows: block})
		}
		block = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		cells := reColumnGap.Split(trimmed, -1)
		if len(cells) < 2 {
			flush()
			continue
		}
		if len(block) > 0 && len(block[0]) != len(cells) {
			flush()
		}
		block = append(block, cells)
	}
	flush()
	return out
}
