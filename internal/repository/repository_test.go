package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/common"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{Driver: "sqlite", DSN: ":memory:"}, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func ptr(v float64) *float64 { return &v }

func sampleResult(hash string, at time.Time) *entity.DocumentResult {
	return &entity.DocumentResult{
		RunID: uuid.New(),
		Document: entity.Document{
			ID:          uuid.New(),
			SourcePath:  "/in/audit-2023.pdf",
			Filename:    "audit-2023.pdf",
			ContentHash: hash,
			SizeBytes:   2048,
			PageCount:   2,
		},
		Pages: []entity.PageResult{
			{
				Number:      1,
				Text:        "Revenue of KSh 2.4 billion under Article 43.",
				TextBackend: "tabula-layout",
				Tables:      []entity.Table{{Backend: "tabula-grid", Rows: [][]string{{"Vote", "Amount"}, {"R1", "5"}}}},
				Quality:     entity.ExtractionQuality{QualityScore: 0.41, WordCount: 8, ParagraphCount: 1, HasTable: true},
				Facts: []entity.Fact{
					{Kind: constants.FactMonetary, Literal: "KSh 2.4 billion", Key: "KSh", Value: ptr(2.4e9), Currency: "KSh", Unit: "billion", Context: "Revenue of KSh 2.4 billion under Article 43.", Offset: 11, Page: 1},
					{Kind: constants.FactArticle, Literal: "Article 43", Key: "43", Value: ptr(43), Context: "Revenue of KSh 2.4 billion under Article 43.", Offset: 33, Page: 1},
				},
			},
			{
				Number:         2,
				Text:           "",
				Tables:         []entity.Table{},
				OCRUsed:        true,
				Quality:        entity.ExtractionQuality{QualityScore: 0.1},
				Facts:          []entity.Fact{},
				FailureReasons: []string{"tesseract: timeout"},
			},
		},
		Quality:     entity.QualityReport{OverallScore: 0.255, PageCount: 2, OCRPages: 1, FailedPages: 1, TableCoverage: 0.5},
		Statistics:  entity.Statistics{TotalWords: 8, TotalTables: 1, TotalFacts: 2, FactsByKind: map[string]int{"monetary": 1, "article": 1}, TextBackendUse: map[string]int{"tabula-layout": 1}},
		Backends:    entity.BackendInventory{Text: []string{"tabula-layout"}, Table: []string{"tabula-grid"}, OCR: []string{"tesseract"}, Unavailable: []string{"gosseract"}},
		ExtractedAt: at,
		Duration:    1500 * time.Millisecond,
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(openTestDB(t), nil)

	res := sampleResult("abc123", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	if err := repo.Save(ctx, res); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := repo.Get(ctx, res.Document.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if diff := cmp.Diff(res, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	_, err = repo.Get(ctx, uuid.New())
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestFactsByKind(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(openTestDB(t), nil)
	res := sampleResult("abc123", time.Now())
	if err := repo.Save(ctx, res); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FactsByKind(ctx, res.Document.ID, constants.FactArticle)
	if err != nil {
		t.Fatalf("FactsByKind() error = %v", err)
	}
	if diff := cmp.Diff([]entity.Fact{res.Pages[0].Facts[1]}, got); diff != "" {
		t.Errorf("FactsByKind() (-want +got):\n%s", diff)
	}

	none, err := repo.FactsByKind(ctx, res.Document.ID, constants.FactCitation)
	if err != nil || len(none) != 0 {
		t.Errorf("FactsByKind(citation) = %v, %v", none, err)
	}
}

func TestListAndFindByHash(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(openTestDB(t), nil)

	older := sampleResult("same", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := sampleResult("same", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	other := sampleResult("other", time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC))
	for _, r := range []*entity.DocumentResult{newer, older, other} {
		if err := repo.Save(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var ids []uuid.UUID
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	want := []uuid.UUID{other.Document.ID, older.Document.ID, newer.Document.ID}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("List() order (-want +got):\n%s", diff)
	}
	if list[0].OverallScore != 0.255 || list[0].PageCount != 2 || list[0].FailedPages != 1 {
		t.Errorf("summary = %+v", list[0])
	}

	found, err := repo.FindByHash(ctx, "same")
	if err != nil {
		t.Fatalf("FindByHash() error = %v", err)
	}
	if found.ID != newer.Document.ID || found.RunID != newer.RunID {
		t.Errorf("FindByHash() = %s, want most recent %s", found.ID, newer.Document.ID)
	}
	if _, err := repo.FindByHash(ctx, "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("FindByHash(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	runs := NewRunRepository(openTestDB(t), nil)

	ok, err := runs.Start(ctx, "/in/a.pdf")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	docID := uuid.New()
	if err := runs.FinishSuccess(ctx, ok.ID, docID); err != nil {
		t.Fatalf("FinishSuccess() error = %v", err)
	}
	got, err := runs.Get(ctx, ok.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != string(constants.RunStatusExtracted) || got.DocumentID == nil || *got.DocumentID != docID || got.FinishedAt == nil {
		t.Errorf("run = %+v", got)
	}

	bad, err := runs.Start(ctx, "/in/b.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if err := runs.FinishFailure(ctx, bad.ID, "document unreadable"); err != nil {
		t.Fatal(err)
	}
	got, err = runs.Get(ctx, bad.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != string(constants.RunStatusFailed) || got.ErrorMessage != "document unreadable" || got.DocumentID != nil {
		t.Errorf("run = %+v", got)
	}

	if err := runs.FinishFailure(ctx, uuid.New(), "x"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("FinishFailure(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"}, nil)
	if !common.IsConfigurationError(err) {
		t.Errorf("Open() error = %v, want configuration error", err)
	}
}

func TestRedact(t *testing.T) {
	got := redact("postgres://facts:s3cret@db:5432/facts?sslmode=disable")
	if got != "postgres://facts:***@db:5432/facts?sslmode=disable" {
		t.Errorf("redact() = %q", got)
	}
}
