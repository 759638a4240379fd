package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// Output file names.
const (
	FileRawText    = "raw_text.json"
	FileTables     = "tables.json"
	FileNumeric    = "numeric_facts.json"
	FileReferences = "references.json"
	FileQuality    = "quality_metrics.json"
	FileMetadata   = "extraction_metadata.json"
	FileStatistics = "extraction_statistics.json"
)

var numericKinds = []constants.FactKind{constants.FactMonetary, constants.FactPercentage, constants.FactYear}

type rawTextPage struct {
	Page        int    `json:"page_number"`
	Text        string `json:"text"`
	TextBackend string `json:"text_backend,omitempty"`
	OCRUsed     bool   `json:"ocr_used"`
}

type tableEntry struct {
	Page  int `json:"page_number"`
	Index int `json:"index"`
	entity.Table
}

type pageQuality struct {
	Page           int      `json:"page_number"`
	FailureReasons []string `json:"failure_reasons,omitempty"`
	entity.ExtractionQuality
}

type metadata struct {
	RunID       string                  `json:"run_id"`
	Document    entity.Document         `json:"document"`
	Backends    entity.BackendInventory `json:"backends"`
	Options     map[string]any          `json:"options,omitempty"`
	ExtractedAt string                  `json:"extracted_at"`
	DurationMS  int64                   `json:"duration_ms"`
}

// WriteFiles writes the per-document file set into dir and returns the paths
// written, in a fixed order.
func WriteFiles(dir string, res *entity.DocumentResult) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	raw := make([]rawTextPage, 0, len(res.Pages))
	tables := []tableEntry{}
	numeric := []entity.Fact{}
	refs := []entity.Fact{}
	quality := make([]pageQuality, 0, len(res.Pages))
	for _, p := range res.Pages {
		raw = append(raw, rawTextPage{Page: p.Number, Text: p.Text, TextBackend: p.TextBackend, OCRUsed: p.OCRUsed})
		for i, t := range p.Tables {
			tables = append(tables, tableEntry{Page: p.Number, Index: i, Table: t})
		}
		for _, f := range p.Facts {
			if slices.Contains(numericKinds, f.Kind) {
				numeric = append(numeric, f)
			} else {
				refs = append(refs, f)
			}
		}
		quality = append(quality, pageQuality{Page: p.Number, FailureReasons: p.FailureReasons, ExtractionQuality: p.Quality})
	}

	files := []struct {
		name string
		v    any
	}{
		{FileRawText, map[string]any{"document": res.Document, "pages": raw}},
		{FileTables, tables},
		{FileNumeric, numeric},
		{FileReferences, refs},
		{FileQuality, map[string]any{"document": res.Quality, "pages": quality}},
		{FileMetadata, metadata{
			RunID:       res.RunID.String(),
			Document:    res.Document,
			Backends:    res.Backends,
			Options:     res.Options,
			ExtractedAt: res.ExtractedAt.Format("2006-01-02T15:04:05Z07:00"),
			DurationMS:  res.Duration.Milliseconds(),
		}},
		{FileStatistics, res.Statistics},
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		data, err := json.MarshalIndent(f.v, "", "  ")
		if err != nil {
			return written, fmt.Errorf("encode %s: %w", f.name, err)
		}
		name := filepath.Join(dir, f.name)
		if err := writeFile(name, data); err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}

// writeFile replaces name atomically so readers never see a partial file.
func writeFile(name string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
