package constants

// FactKind is the type tag stored with every extracted fact.
type FactKind string

const (
	FactMonetary       FactKind = "monetary"
	FactPercentage     FactKind = "percentage"
	FactYear           FactKind = "year"
	FactArticle        FactKind = "article"
	FactInstitution    FactKind = "institution"
	FactCitation       FactKind = "citation"
	FactLegalReference FactKind = "legal_reference"
	FactFigure         FactKind = "figure"
	FactScandal        FactKind = "scandal"
	FactKeyword        FactKind = "keyword"
)

// FactKinds is the stable order used for exports and statistics.
var FactKinds = []FactKind{
	FactMonetary,
	FactPercentage,
	FactYear,
	FactArticle,
	FactInstitution,
	FactCitation,
	FactLegalReference,
	FactFigure,
	FactScandal,
	FactKeyword,
}

// Currency tags.
const (
	CurrencyKSh = "KSh"
	CurrencyUSD = "USD"
)
