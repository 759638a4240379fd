package entity

import (
	"strings"
	"time"

	"github.com/joseph-ayodele/report-facts/constants"
)

// Candidate is one backend's raw output for one page. It only lives until merge.
type Candidate struct {
	Page          int                    `json:"page"`
	Kind          constants.Capability   `json:"kind"`
	Backend       constants.BackendID    `json:"backend"`
	Class         constants.BackendClass `json:"class"`
	Text          string                 `json:"text,omitempty"`
	Tables        []Table                `json:"tables,omitempty"`
	Figures       int                    `json:"figures,omitempty"`
	WordCount     int                    `json:"word_count"`
	CellCount     int                    `json:"cell_count"`
	Confidence    float64                `json:"confidence,omitempty"`
	FailureReason string                 `json:"failure_reason,omitempty"`
	Duration      time.Duration          `json:"duration_ns"`
}

// CountWords counts whitespace separated tokens.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// OK reports whether the backend produced usable output.
func (c Candidate) OK() bool { return c.FailureReason == "" }

// Failed builds a failed candidate.
func Failed(page int, kind constants.Capability, id constants.BackendID, class constants.BackendClass, reason string) Candidate {
	if reason == "" {
		reason = "unknown failure"
	}
	return Candidate{Page: page, Kind: kind, Backend: id, Class: class, FailureReason: reason}
}

// BBox is a region in PDF user space (origin bottom-left).
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Overlaps reports whether two boxes share any area.
func (b BBox) Overlaps(o BBox) bool {
	return b.X < o.X+o.Width && o.X < b.X+b.Width &&
		b.Y < o.Y+o.Height && o.Y < b.Y+b.Height
}

// Table is a grid of cell strings.
type Table struct {
	Backend    string     `json:"backend"`
	Rows       [][]string `json:"rows"`
	BBox       *BBox      `json:"bbox,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
}

func (t Table) RowCount() int { return len(t.Rows) }

// ColCount is the widest row.
func (t Table) ColCount() int {
	n := 0
	for _, r := range t.Rows {
		if len(r) > n {
			n = len(r)
		}
	}
	return n
}

// CellCount counts non-empty cells.
func (t Table) CellCount() int {
	n := 0
	for _, r := range t.Rows {
		for _, c := range r {
			if c != "" {
				n++
			}
		}
	}
	return n
}

// FirstCell is the top-left cell, or "" for an empty table.
func (t Table) FirstCell() string {
	if len(t.Rows) == 0 || len(t.Rows[0]) == 0 {
		return ""
	}
	return t.Rows[0][0]
}
