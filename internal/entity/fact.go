package entity

import "github.com/joseph-ayodele/report-facts/constants"

// Fact is one normalized value found in merged page text. Literal keeps the
// surface form; Key and Value carry the normalized form.
type Fact struct {
	Kind      constants.FactKind `json:"kind"`
	Literal   string             `json:"literal"`
	Key       string             `json:"key,omitempty"`
	Value     *float64           `json:"value,omitempty"`
	Currency  string             `json:"currency,omitempty"`
	Unit      string             `json:"unit,omitempty"`
	Qualifier string             `json:"qualifier,omitempty"`
	Context   string             `json:"context"`
	Offset    int                `json:"offset"`
	Page      int                `json:"page"`
}
