package backend

import (
	"fmt"
	"strings"

	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/pages"
	"github.com/tsawler/tabula/reader"
)

// tabulaPage is one parsed page and the reader that owns it.
type tabulaPage struct {
	r    *reader.Reader
	page *pages.Page
}

// openTabulaPage opens path and resolves a 1-indexed page. The caller closes r.
func openTabulaPage(path string, number int) (*tabulaPage, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, err
	}
	count, err := r.PageCount()
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	if number < 1 || number > count {
		_ = r.Close()
		return nil, fmt.Errorf("page %d out of range (1..%d)", number, count)
	}
	p, err := r.GetPage(number - 1)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return &tabulaPage{r: r, page: p}, nil
}

func (t *tabulaPage) Close() error { return t.r.Close() }

// content decodes and concatenates the page content streams.
func (t *tabulaPage) content() ([]byte, error) {
	objs, err := t.page.Contents()
	if err != nil {
		return nil, err
	}
	var all []byte
	for _, obj := range objs {
		s, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		data, err := s.Decode()
		if err != nil {
			return nil, fmt.Errorf("decode content stream: %w", err)
		}
		all = append(all, data...)
		all = append(all, '\n')
	}
	return all, nil
}

// fragments converts positioned text into the table detectors' model.
func (t *tabulaPage) fragments() ([]model.TextFragment, error) {
	frags, err := t.r.ExtractTextFragments(t.page)
	if err != nil {
		return nil, err
	}
	out := make([]model.TextFragment, 0, len(frags))
	for _, f := range frags {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		out = append(out, model.TextFragment{
			Text:     f.Text,
			BBox:     model.BBox{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height},
			FontSize: f.FontSize,
			FontName: f.FontName,
		})
	}
	return out, nil
}

// minFigureSide filters out bullets, rules and logos drawn as tiny images.
const minFigureSide = 50

// figures counts image XObjects large enough to be a chart or photo.
func (t *tabulaPage) figures() int {
	imgs, err := t.r.ExtractPageImages(t.page)
	if err != nil {
		return 0
	}
	n := 0
	for _, img := range imgs {
		if img.Width >= minFigureSide && img.Height >= minFigureSide {
			n++
		}
	}
	return n
}
