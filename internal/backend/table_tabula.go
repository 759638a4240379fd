package backend

import (
	"context"
	"sort"
	"strings"

	"github.com/tsawler/tabula/graphicsstate"
	"github.com/tsawler/tabula/model"
	tabtables "github.com/tsawler/tabula/tables"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// minGridConfidence drops weak ruled-grid hypotheses (underlines, page borders).
const minGridConfidence = 0.5

// TabulaGrid finds ruled tables: grid hypotheses from drawn lines, then text
// fragments are placed into the cells they fall in.
type TabulaGrid struct {
	info
}

func NewTabulaGrid() *TabulaGrid {
	return &TabulaGrid{info: info{id: constants.BackendTabulaGrid, cap: constants.CapabilityTable, class: constants.ClassStructured}}
}

func (*TabulaGrid) Probe(context.Context) bool { return true }

func (b *TabulaGrid) Extract(_ context.Context, page Page) entity.Candidate {
	tp, err := openTabulaPage(page.Doc.SourcePath, page.Number)
	if err != nil {
		return b.fail(page, "tabula: %v", err)
	}
	defer tp.Close()

	data, err := tp.content()
	if err != nil {
		return b.fail(page, "tabula: %v", err)
	}
	ge := graphicsstate.NewGraphicsExtractor()
	if err := ge.ExtractFromBytes(data); err != nil {
		return b.fail(page, "graphics: %v", err)
	}
	frags, err := tp.fragments()
	if err != nil {
		return b.fail(page, "tabula: %v", err)
	}

	var out []entity.Table
	var taken []model.BBox
	for _, h := range tabtables.DetectGrids(ge).Hypotheses {
		if h.Confidence < minGridConfidence || len(h.HorizontalLines) < 3 || len(h.VerticalLines) < 3 {
			continue
		}
		if overlapsAny(h.BBox, taken) {
			continue
		}
		taken = append(taken, h.BBox)
		t := fillGrid(h.HorizontalLines, h.VerticalLines, frags)
		t.Backend = string(b.id)
		t.BBox = toBBox(h.BBox)
		t.Confidence = h.Confidence
		out = append(out, t)
	}
	return tableCandidate(out)
}

// fillGrid assigns fragments to cells by their centre point. ys are row
// boundaries sorted descending (PDF y grows upwards), xs column boundaries ascending.
func fillGrid(ys, xs []float64, frags []model.TextFragment) entity.Table {
	rows, cols := len(ys)-1, len(xs)-1
	cells := make([][][]string, rows)
	for i := range cells {
		cells[i] = make([][]string, cols)
	}
	for _, f := range frags {
		cx := f.BBox.X + f.BBox.Width/2
		cy := f.BBox.Y + f.BBox.Height/2
		r := sort.Search(rows, func(i int) bool { return ys[i+1] < cy }) // first row whose bottom is below cy
		c := sort.Search(cols, func(i int) bool { return xs[i+1] > cx })
		if r >= rows || c >= cols || cy > ys[0] || cx < xs[0] {
			continue
		}
		cells[r][c] = append(cells[r][c], f.Text)
	}
	t := entity.Table{Rows: make([][]string, rows)}
	for i := range cells {
		t.Rows[i] = make([]string, cols)
		for j := range cells[i] {
			t.Rows[i][j] = strings.Join(strings.Fields(strings.Join(cells[i][j], " ")), " ")
		}
	}
	return t
}

// TabulaGeometric infers tables from text alignment, with or without ruling.
type TabulaGeometric struct {
	info
}

func NewTabulaGeometric() *TabulaGeometric {
	return &TabulaGeometric{info: info{id: constants.BackendTabulaGeometric, cap: constants.CapabilityTable, class: constants.ClassLayout}}
}

func (*TabulaGeometric) Probe(context.Context) bool { return true }

func (b *TabulaGeometric) Extract(_ context.Context, page Page) entity.Candidate {
	tp, err := openTabulaPage(page.Doc.SourcePath, page.Number)
	if err != nil {
		return b.fail(page, "tabula: %v", err)
	}
	defer tp.Close()

	frags, err := tp.fragments()
	if err != nil {
		return b.fail(page, "tabula: %v", err)
	}
	w, _ := tp.page.Width()
	h, _ := tp.page.Height()
	mp := model.NewPage(w, h)
	mp.Number = page.Number
	mp.RawText = frags
	if data, err := tp.content(); err == nil {
		ge := graphicsstate.NewGraphicsExtractor()
		if ge.ExtractFromBytes(data) == nil {
			mp.RawLines = ge.ToModelLines()
		}
	}

	found, err := tabtables.NewGeometricDetector().Detect(mp)
	if err != nil {
		return b.fail(page, "geometric: %v", err)
	}
	out := make([]entity.Table, 0, len(found))
	for _, mt := range found {
		if mt == nil || mt.RowCount() < 2 || mt.ColCount() < 2 {
			continue
		}
		t := entity.Table{Backend: string(b.id), BBox: toBBox(mt.BBox), Confidence: mt.Confidence}
		for _, row := range mt.Rows {
			cells := make([]string, len(row))
			for j, c := range row {
				cells[j] = strings.TrimSpace(c.Text)
			}
			t.Rows = append(t.Rows, cells)
		}
		out = append(out, t)
	}
	return tableCandidate(out)
}

func tableCandidate(tables []entity.Table) entity.Candidate {
	cells := 0
	for _, t := range tables {
		cells += t.CellCount()
	}
	return entity.Candidate{Tables: tables, CellCount: cells}
}

func toBBox(b model.BBox) *entity.BBox {
	return &entity.BBox{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

func overlapsAny(b model.BBox, taken []model.BBox) bool {
	eb := *toBBox(b)
	for _, t := range taken {
		if eb.Overlaps(*toBBox(t)) {
			return true
		}
	}
	return false
}
