package backend

import (
	"context"
	"errors"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tsawler/tabula/model"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// testdata/report.pdf has two pages: a ruled 3x2 allocation grid under a
// heading, then two sentences of body text.
const fixture = "testdata/report.pdf"

func fixtureDoc(t *testing.T) *entity.Document {
	t.Helper()
	data, err := os.ReadFile(fixture)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return &entity.Document{SourcePath: fixture, Filename: filepath.Base(fixture), Data: data, PageCount: 2}
}

func frag(text string, x, y float64) model.TextFragment {
	return model.TextFragment{Text: text, BBox: model.BBox{X: x, Y: y, Width: 20, Height: 8}}
}

func TestFillGrid(t *testing.T) {
	ys := []float64{700, 680, 660}
	xs := []float64{100, 250, 400}
	tests := []struct {
		name  string
		frags []model.TextFragment
		want  [][]string
	}{
		{
			name: "one fragment per cell",
			frags: []model.TextFragment{
				frag("County", 105, 686), frag("Allocation", 255, 686),
				frag("Nairobi", 105, 666), frag("39.2", 255, 666),
			},
			want: [][]string{{"County", "Allocation"}, {"Nairobi", "39.2"}},
		},
		{
			name:  "fragments sharing a cell are joined",
			frags: []model.TextFragment{frag("KSh", 255, 666), frag("  39.2   bn ", 280, 666)},
			want:  [][]string{{"", ""}, {"", "KSh 39.2 bn"}},
		},
		{
			name: "fragments outside the grid are dropped",
			frags: []model.TextFragment{
				frag("heading", 105, 740), frag("margin", 20, 686),
				frag("footer", 105, 600), frag("note", 450, 666),
			},
			want: [][]string{{"", ""}, {"", ""}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fillGrid(ys, xs, tt.frags)
			if diff := cmp.Diff(tt.want, got.Rows); diff != "" {
				t.Errorf("rows (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPureGoTextBackends(t *testing.T) {
	doc := fixtureDoc(t)
	for _, b := range []Backend{NewTabulaLayout(), NewPlainText()} {
		t.Run(string(b.ID()), func(t *testing.T) {
			if !b.Probe(context.Background()) {
				t.Fatal("Probe() = false for a pure Go backend")
			}
			c := Safe(context.Background(), b, Page{Doc: doc, Number: 2})
			if !c.OK() {
				t.Fatalf("Extract() failed: %s", c.FailureReason)
			}
			if !strings.Contains(c.Text, "Revenue") || c.WordCount == 0 {
				t.Errorf("candidate = %q (%d words)", c.Text, c.WordCount)
			}
			if c.Kind != constants.CapabilityText || c.Page != 2 {
				t.Errorf("identity = %s page %d", c.Kind, c.Page)
			}

			if c := Safe(context.Background(), b, Page{Doc: doc, Number: 5}); c.OK() {
				t.Error("Extract() of a missing page succeeded")
			}
		})
	}
}

func TestPureGoTableBackends(t *testing.T) {
	doc := fixtureDoc(t)
	for _, b := range []Backend{NewTabulaGrid(), NewTabulaGeometric()} {
		t.Run(string(b.ID()), func(t *testing.T) {
			c := Safe(context.Background(), b, Page{Doc: doc, Number: 1})
			if !c.OK() {
				t.Fatalf("Extract() failed: %s", c.FailureReason)
			}
			cells := 0
			for _, tbl := range c.Tables {
				if tbl.Backend != string(b.ID()) || tbl.RowCount() < 2 {
					t.Errorf("table = %+v", tbl)
				}
				cells += tbl.CellCount()
			}
			if c.CellCount != cells {
				t.Errorf("CellCount = %d, want %d", c.CellCount, cells)
			}

			miss := Safe(context.Background(), b, Page{Doc: doc, Number: 5})
			if miss.OK() || !strings.Contains(miss.FailureReason, "out of range") {
				t.Errorf("missing page reason = %q", miss.FailureReason)
			}
		})
	}
}

func TestPlainTextRecoversParserPanic(t *testing.T) {
	c := NewPlainText().Extract(context.Background(), Page{Number: 1})
	if c.OK() || !strings.HasPrefix(c.FailureReason, "pdf: panic") {
		t.Errorf("candidate = %+v, want recovered panic", c)
	}
}

func TestPlainTextRejectsGarbage(t *testing.T) {
	doc := &entity.Document{SourcePath: "junk.pdf", Data: []byte("not a pdf")}
	c := Safe(context.Background(), NewPlainText(), Page{Doc: doc, Number: 1})
	if c.OK() || !strings.HasPrefix(c.FailureReason, "pdf:") {
		t.Errorf("candidate = %+v", c)
	}
}

func TestPageCountFallbacks(t *testing.T) {
	garbage := filepath.Join(t.TempDir(), "scan.pdf")
	if err := os.WriteFile(garbage, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	valid := fixtureDoc(t)
	pdfinfo := func(out string, err error) map[string]func([]string) ([]byte, []byte, error) {
		return map[string]func([]string) ([]byte, []byte, error){
			"pdfinfo": func([]string) ([]byte, []byte, error) { return []byte(out), nil, err },
		}
	}

	tests := []struct {
		name        string
		doc         *entity.Document
		handlers    map[string]func([]string) ([]byte, []byte, error)
		want        int
		wantPdfinfo bool
		wantErr     bool
	}{
		{name: "tabula reads the file", doc: valid, want: 2},
		{
			name: "bytes parse when the path does not",
			doc:  &entity.Document{SourcePath: filepath.Join(t.TempDir(), "moved.pdf"), Data: valid.Data},
			want: 2,
		},
		{
			name:        "pdfinfo as last resort",
			doc:         &entity.Document{SourcePath: garbage, Data: []byte("not a pdf")},
			handlers:    pdfinfo("Title: x\nPages:          7\nEncrypted: no\n", nil),
			want:        7,
			wantPdfinfo: true,
		},
		{
			name:        "every method fails",
			doc:         &entity.Document{SourcePath: garbage, Data: []byte("not a pdf")},
			handlers:    pdfinfo("", errors.New("exit status 1")),
			wantPdfinfo: true,
			wantErr:     true,
		},
		{
			name:        "pdfinfo without a Pages line",
			doc:         &entity.Document{SourcePath: garbage, Data: []byte("not a pdf")},
			handlers:    pdfinfo("Title: x\n", nil),
			wantPdfinfo: true,
			wantErr:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{handlers: tt.handlers}
			n, err := NewLoader(Config{}, r, nil).PageCount(context.Background(), tt.doc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PageCount() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				for _, step := range []string{"tabula:", "pdf:", "pdfinfo:"} {
					if !strings.Contains(err.Error(), step) {
						t.Errorf("error %q does not mention %s", err, step)
					}
				}
			} else if n != tt.want {
				t.Errorf("PageCount() = %d, want %d", n, tt.want)
			}
			if called := len(r.calls) > 0; called != tt.wantPdfinfo {
				t.Errorf("pdfinfo called = %v, want %v (%v)", called, tt.wantPdfinfo, r.calls)
			}
		})
	}
}

func TestLoaderLoad(t *testing.T) {
	doc, err := NewLoader(Config{}, &fakeRunner{}, nil).Load(context.Background(), fixture)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.PageCount != 2 || doc.ContentHash != HashContent(doc.Data) || len(doc.ContentHash) != 64 {
		t.Errorf("document = pages %d hash %q", doc.PageCount, doc.ContentHash)
	}
	if _, err := NewLoader(Config{}, &fakeRunner{}, nil).Load(context.Background(), "testdata/missing.pdf"); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

// Adapters sit at the bottom of the engine and may only depend on the data
// model and shared plumbing.
func TestAdaptersImportNothingAbove(t *testing.T) {
	const module = "github.com/joseph-ayodele/report-facts/"
	allowed := map[string]bool{
		module + "constants":       true,
		module + "internal/entity": true,
		module + "internal/common": true,
	}
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatal(err)
	}
	fset := token.NewFileSet()
	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, name, nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		for _, imp := range f.Imports {
			path, _ := strconv.Unquote(imp.Path.Value)
			if strings.HasPrefix(path, module) && !allowed[path] {
				t.Errorf("%s imports %s", name, path)
			}
		}
	}
}
