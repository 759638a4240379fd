package backend

import (
	"context"
	"strings"

	"github.com/tsawler/tabula"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// TabulaLayout is the layout-aware text backend: reading order and paragraph
// joining come from github.com/tsawler/tabula. It also reports figure counts.
type TabulaLayout struct {
	info
}

func NewTabulaLayout() *TabulaLayout {
	return &TabulaLayout{info: info{id: constants.BackendTabulaLayout, cap: constants.CapabilityText, class: constants.ClassLayout}}
}

func (*TabulaLayout) Probe(context.Context) bool { return true }

func (b *TabulaLayout) Extract(_ context.Context, page Page) entity.Candidate {
	text, _, err := tabula.Open(page.Doc.SourcePath).Pages(page.Number).JoinParagraphs().Text()
	if err != nil {
		return b.fail(page, "tabula: %v", err)
	}

	figures := 0
	if tp, err := openTabulaPage(page.Doc.SourcePath, page.Number); err == nil {
		figures = tp.figures()
		_ = tp.Close()
	}

	if strings.TrimSpace(text) == "" {
		c := b.fail(page, "no text layer")
		c.Figures = figures
		return c
	}
	return entity.Candidate{Text: text, WordCount: entity.CountWords(text), Figures: figures}
}
