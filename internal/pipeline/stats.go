package pipeline

import (
	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// statistics counts over the merged pages. Every fact kind is present in
// FactsByKind, zero or not.
func statistics(pages []entity.PageResult) entity.Statistics {
	st := entity.Statistics{
		FactsByKind:    make(map[string]int, len(constants.FactKinds)),
		TextBackendUse: map[string]int{},
	}
	for _, k := range constants.FactKinds {
		st.FactsByKind[string(k)] = 0
	}
	for _, p := range pages {
		st.TotalWords += p.Quality.WordCount
		st.TotalTables += len(p.Tables)
		st.TotalFigures += p.Figures
		st.TotalFacts += len(p.Facts)
		for _, f := range p.Facts {
			st.FactsByKind[string(f.Kind)]++
		}
		if p.TextBackend != "" {
			st.TextBackendUse[p.TextBackend]++
		}
	}
	return st
}
