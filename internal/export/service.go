package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/report-facts/internal/entity"
	"github.com/joseph-ayodele/report-facts/internal/repository"
)

// Sheet names of the document workbook.
const (
	SheetPages   = "Pages"
	SheetFacts   = "Facts"
	SheetQuality = "Quality"
)

// Service produces XLSX bytes for extracted documents.
type Service struct {
	docs   repository.DocumentRepository
	logger *slog.Logger
}

// NewService builds an exporter. docs may be nil when only DocumentXLSX is used.
func NewService(docs repository.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, logger: logger}
}

// ExportDocumentXLSX loads a stored document and renders it.
func (s *Service) ExportDocumentXLSX(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if s.docs == nil {
		return nil, fmt.Errorf("export: no document repository")
	}
	res, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	return s.DocumentXLSX(ctx, res)
}

// DocumentXLSX returns a workbook with one row per page, one row per fact and
// the document quality summary.
func (s *Service) DocumentXLSX(ctx context.Context, res *entity.DocumentResult) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetPages); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetFacts, SheetQuality} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	pages := &sheetWriter{f: f, sheet: SheetPages}
	pages.header("Page", "Text Backend", "Words", "Paragraphs", "Sentences", "Tables", "Figures", "OCR", "Quality", "Failures", "Text")
	for _, p := range res.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages.row(p.Number, p.TextBackend, p.Quality.WordCount, p.Quality.ParagraphCount, p.Quality.SentenceCount, len(p.Tables), p.Figures,
			p.OCRUsed, p.Quality.QualityScore, strings.Join(p.FailureReasons, "; "), truncate(p.Text, 500))
	}

	facts := &sheetWriter{f: f, sheet: SheetFacts}
	facts.header("Page", "Kind", "Literal", "Key", "Value", "Currency", "Unit", "Qualifier", "Context")
	n := 0
	for _, p := range res.Pages {
		for _, fact := range p.Facts {
			var value any = ""
			if fact.Value != nil {
				value = *fact.Value
			}
			facts.row(p.Number, string(fact.Kind), fact.Literal, fact.Key, value, fact.Currency, fact.Unit, fact.Qualifier, truncate(fact.Context, 300))
			n++
		}
	}

	q := res.Quality
	quality := &sheetWriter{f: f, sheet: SheetQuality}
	quality.header("Metric", "Value")
	quality.row("Source", res.Document.SourcePath)
	quality.row("Content Hash", res.Document.ContentHash)
	quality.row("Pages", q.PageCount)
	quality.row("Overall Score", q.OverallScore)
	quality.row("Average Words per Page", q.AverageWordsPerPage)
	quality.row("Table Coverage", q.TableCoverage)
	quality.row("Figure Coverage", q.FigureCoverage)
	quality.row("OCR Pages", q.OCRPages)
	quality.row("Failed Pages", q.FailedPages)
	quality.row("Extracted At", res.ExtractedAt.UTC().Format(time.RFC3339))

	if errs := append(append(pages.errs, facts.errs...), quality.errs...); len(errs) > 0 {
		return nil, fmt.Errorf("xlsx cell: %w", errs[0])
	}

	_ = f.SetColWidth(SheetPages, "B", "B", 18)
	_ = f.SetColWidth(SheetPages, "I", "I", 30)
	_ = f.SetColWidth(SheetPages, "J", "J", 80)
	_ = f.SetColWidth(SheetFacts, "C", "D", 28)
	_ = f.SetColWidth(SheetFacts, "I", "I", 80)
	_ = f.SetColWidth(SheetQuality, "A", "B", 28)
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"document_id", res.Document.ID.String(),
		"pages", len(res.Pages),
		"facts", n,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

type sheetWriter struct {
	f     *excelize.File
	sheet string
	next  int
	errs  []error
}

func (w *sheetWriter) header(cols ...string) {
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = c
	}
	w.row(vals...)
}

func (w *sheetWriter) row(vals ...any) {
	w.next++
	cell, err := excelize.CoordinatesToCellName(1, w.next)
	if err == nil {
		err = w.f.SetSheetRow(w.sheet, cell, &vals)
	}
	if err != nil {
		w.errs = append(w.errs, err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
