package backend

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// PlainText reads the text layer with github.com/ledongthuc/pdf. It is pure Go
// and always available.
type PlainText struct {
	info
}

func NewPlainText() *PlainText {
	return &PlainText{info: info{id: constants.BackendPDFPlain, cap: constants.CapabilityText, class: constants.ClassPlain}}
}

func (*PlainText) Probe(context.Context) bool { return true }

func (b *PlainText) Extract(_ context.Context, page Page) (c entity.Candidate) {
	defer func() {
		// the parser panics on some malformed streams
		if r := recover(); r != nil {
			c = b.fail(page, "pdf: panic: %v", r)
		}
	}()
	data := page.Doc.Data
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return b.fail(page, "pdf: %v", err)
	}
	if page.Number < 1 || page.Number > r.NumPage() {
		return b.fail(page, "page %d out of range (1..%d)", page.Number, r.NumPage())
	}
	p := r.Page(page.Number)
	if p.V.IsNull() {
		return b.fail(page, "page %d has no object", page.Number)
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return b.fail(page, "pdf: %v", err)
	}
	if strings.TrimSpace(text) == "" {
		return b.fail(page, "no text layer")
	}
	return entity.Candidate{Text: text, WordCount: entity.CountWords(text)}
}
