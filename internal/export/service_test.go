package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

func TestDocumentXLSX(t *testing.T) {
	v := 2.4e9
	res := &entity.DocumentResult{
		Document: entity.Document{ID: uuid.New(), SourcePath: "/in/report.pdf", ContentHash: "abc"},
		Pages: []entity.PageResult{
			{
				Number: 1, Text: "Revenue of KSh 2.4 billion.", TextBackend: "tabula-layout",
				Quality: entity.ExtractionQuality{QualityScore: 0.5, WordCount: 5},
				Facts: []entity.Fact{
					{Kind: constants.FactMonetary, Literal: "KSh 2.4 billion", Key: "KSh", Value: &v, Currency: "KSh", Unit: "billion"},
					{Kind: constants.FactInstitution, Literal: "EACC", Key: "Ethics and Anti-Corruption Commission"},
				},
			},
			{Number: 2, FailureReasons: []string{"pdf-plain: empty page", "tesseract: timeout"}},
		},
		Quality:     entity.QualityReport{OverallScore: 0.3, PageCount: 2, FailedPages: 1},
		ExtractedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	out, err := NewService(nil, nil).DocumentXLSX(context.Background(), res)
	if err != nil {
		t.Fatalf("DocumentXLSX() error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 3 || got[0] != SheetPages || got[1] != SheetFacts || got[2] != SheetQuality {
		t.Errorf("sheets = %v", got)
	}

	pages, err := f.GetRows(SheetPages)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 3 {
		t.Fatalf("pages rows = %d, want header + 2", len(pages))
	}
	if pages[1][1] != "tabula-layout" || pages[2][9] != "pdf-plain: empty page; tesseract: timeout" {
		t.Errorf("pages rows = %v", pages)
	}

	facts, err := f.GetRows(SheetFacts)
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 3 || facts[1][1] != "monetary" || facts[2][3] != "Ethics and Anti-Corruption Commission" {
		t.Errorf("facts rows = %v", facts)
	}

	quality, err := f.GetRows(SheetQuality)
	if err != nil {
		t.Fatal(err)
	}
	if quality[1][1] != "/in/report.pdf" {
		t.Errorf("quality rows = %v", quality)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("ééééé", 3); got != "éé…" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
}
