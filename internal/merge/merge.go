// Package merge reconciles backend candidates for one page into a single
// record. Everything here is deterministic given the candidates and a Policy.
package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// Merge picks the best text and unions the tables of one page. Quality and
// facts are filled in later stages.
func Merge(page int, candidates []entity.Candidate, p Policy) entity.PageResult {
	res := entity.PageResult{Number: page, Tables: []entity.Table{}, Facts: []entity.Fact{}}

	var tables []entity.Table
	var tableRanks []int
	for _, c := range candidates {
		if c.Figures > res.Figures {
			res.Figures = c.Figures
		}
		if c.Kind == constants.CapabilityOCR {
			res.OCRUsed = true
		}
		if !c.OK() {
			res.FailureReasons = append(res.FailureReasons, fmt.Sprintf("%s: %s", c.Backend, c.FailureReason))
			continue
		}
		if c.Kind == constants.CapabilityTable {
			r := p.rank(p.TableClassOrder, c.Class, c.Backend)
			for _, t := range c.Tables {
				if t.Backend == "" {
					t.Backend = string(c.Backend)
				}
				tables = append(tables, t)
				tableRanks = append(tableRanks, r)
			}
		}
	}

	if best, ok := SelectText(candidates, p); ok {
		res.Text = Clean(best.Text)
		res.TextBackend = string(best.Backend)
	}
	res.Tables = dedupe(tables, tableRanks, p)
	return res
}

// SelectText returns the successful text or OCR candidate with the greatest
// completeness; ties go to the higher ranked backend.
func SelectText(candidates []entity.Candidate, p Policy) (entity.Candidate, bool) {
	var best entity.Candidate
	bestScore, bestRank := -1, 0
	for _, c := range candidates {
		if !c.OK() || (c.Kind != constants.CapabilityText && c.Kind != constants.CapabilityOCR) {
			continue
		}
		if Clean(c.Text) == "" {
			continue
		}
		score := Completeness(c.Text)
		rank := p.rank(p.TextClassOrder, c.Class, c.Backend)
		if score > bestScore || (score == bestScore && rank < bestRank) {
			best, bestScore, bestRank = c, score, rank
		}
	}
	return best, bestScore >= 0
}

func dedupe(tables []entity.Table, ranks []int, p Policy) []entity.Table {
	idx := make([]int, len(tables))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return ranks[idx[a]] < ranks[idx[b]] })

	kept := make([]entity.Table, 0, len(tables))
	for _, i := range idx {
		t := tables[i]
		dup := false
		for _, k := range kept {
			if sameTable(k, t, p) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, t)
		}
	}
	return kept
}

// sameTable: shapes within tolerance and matching first cell. Two tables from
// one backend at disjoint positions are distinct even when they look alike.
func sameTable(a, b entity.Table, p Policy) bool {
	if abs(a.RowCount()-b.RowCount()) > p.RowTolerance || abs(a.ColCount()-b.ColCount()) > p.ColTolerance {
		return false
	}
	if a.Backend == b.Backend && a.BBox != nil && b.BBox != nil && !a.BBox.Overlaps(*b.BBox) {
		return false
	}
	ka, kb := fold(a.FirstCell()), fold(b.FirstCell())
	if ka == "" && kb == "" {
		return fold(firstRow(a)) == fold(firstRow(b))
	}
	return ka == kb
}

func firstRow(t entity.Table) string {
	if len(t.Rows) == 0 {
		return ""
	}
	return strings.Join(t.Rows[0], " ")
}

func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
