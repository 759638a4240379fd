//go:build !ocr

package backend

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// Gosseract is compiled out without the ocr build tag and always probes false.
type Gosseract struct {
	info
}

func NewGosseract(Config, Runner, *slog.Logger) *Gosseract {
	return &Gosseract{info: info{id: constants.BackendGosseract, cap: constants.CapabilityOCR, class: constants.ClassOCR}}
}

func (*Gosseract) Probe(context.Context) bool { return false }

func (g *Gosseract) Extract(_ context.Context, page Page) entity.Candidate {
	return g.fail(page, "gosseract not compiled in (build with -tags ocr)")
}
