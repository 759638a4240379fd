package merge

import "github.com/joseph-ayodele/report-facts/constants"

// Policy is the complete tie-break table of the merger. Merging is a pure
// function of the candidates and the policy.
type Policy struct {
	// TextClassOrder ranks text sources; earlier wins ties on completeness.
	TextClassOrder []constants.BackendClass
	// TableClassOrder ranks table sources; earlier wins among duplicates.
	TableClassOrder []constants.BackendClass
	// BackendOrder breaks ties inside a class.
	BackendOrder []constants.BackendID
	// Two tables are the same physical table when their row and column counts
	// differ by at most these amounts and their first cells match.
	RowTolerance int
	ColTolerance int
}

// DefaultPolicy: layout > plain > ocr for text, structured > layout > generic for
// tables, exact shape match.
func DefaultPolicy() Policy {
	return Policy{
		TextClassOrder:  []constants.BackendClass{constants.ClassLayout, constants.ClassPlain, constants.ClassOCR},
		TableClassOrder: []constants.BackendClass{constants.ClassStructured, constants.ClassLayout, constants.ClassGeneric},
		BackendOrder:    constants.KnownBackends,
	}
}

func (p Policy) rank(classes []constants.BackendClass, class constants.BackendClass, id constants.BackendID) int {
	ci := indexOf(classes, class)
	bi := indexOf(p.BackendOrder, id)
	return ci*(len(p.BackendOrder)+1) + bi
}

func indexOf[T comparable](list []T, v T) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return len(list)
}
