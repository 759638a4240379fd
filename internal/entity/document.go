package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is the input of one extraction run. Data is read once and shared
// read-only by every backend invocation.
type Document struct {
	ID          uuid.UUID `json:"id"`
	SourcePath  string    `json:"source_path"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash"`
	SizeBytes   int64     `json:"size_bytes"`
	PageCount   int       `json:"page_count"`

	Data []byte `json:"-"`
}

// DocumentResult is the fully serializable output of one run.
type DocumentResult struct {
	RunID       uuid.UUID        `json:"run_id"`
	Document    Document         `json:"document"`
	Pages       []PageResult     `json:"pages"`
	Quality     QualityReport    `json:"quality"`
	Statistics  Statistics       `json:"statistics"`
	Backends    BackendInventory `json:"backends"`
	Options     map[string]any   `json:"options,omitempty"`
	ExtractedAt time.Time        `json:"extracted_at"`
	Duration    time.Duration    `json:"duration_ns"`
}

// BackendInventory records which backends were usable for the run.
type BackendInventory struct {
	Text        []string `json:"text"`
	Table       []string `json:"table"`
	OCR         []string `json:"ocr"`
	Unavailable []string `json:"unavailable,omitempty"`
}

// PageResult is the merged record for one page.
type PageResult struct {
	Number         int               `json:"page_number"`
	Text           string            `json:"text"`
	TextBackend    string            `json:"text_backend,omitempty"`
	Tables         []Table           `json:"tables"`
	Figures        int               `json:"figures"`
	OCRUsed        bool              `json:"ocr_used"`
	Quality        ExtractionQuality `json:"quality"`
	Facts          []Fact            `json:"facts"`
	FailureReasons []string          `json:"failure_reasons,omitempty"`
}

// Statistics are plain counts over the whole document.
type Statistics struct {
	TotalWords     int            `json:"total_words"`
	TotalTables    int            `json:"total_tables"`
	TotalFigures   int            `json:"total_figures"`
	TotalFacts     int            `json:"total_facts"`
	FactsByKind    map[string]int `json:"facts_by_kind"`
	TextBackendUse map[string]int `json:"text_backend_use"`
}

// DocumentSummary is the stored header of an extracted document.
type DocumentSummary struct {
	ID           uuid.UUID `json:"id"`
	RunID        uuid.UUID `json:"run_id"`
	SourcePath   string    `json:"source_path"`
	Filename     string    `json:"filename"`
	ContentHash  string    `json:"content_hash"`
	PageCount    int       `json:"page_count"`
	OverallScore float64   `json:"overall_score"`
	OCRPages     int       `json:"ocr_pages"`
	FailedPages  int       `json:"failed_pages"`
	ExtractedAt  time.Time `json:"extracted_at"`
}

// Run tracks one invocation of the pipeline over a file.
type Run struct {
	ID           uuid.UUID  `json:"id"`
	SourcePath   string     `json:"source_path"`
	Status       string     `json:"status"`
	DocumentID   *uuid.UUID `json:"document_id,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
