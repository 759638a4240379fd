package constants

// BackendID names one concrete extraction technology.
type BackendID string

const (
	BackendTabulaLayout    BackendID = "tabula-layout"
	BackendPdftotextLayout BackendID = "pdftotext-layout"
	BackendPdftotext       BackendID = "pdftotext"
	BackendPDFPlain        BackendID = "pdf-plain"
	BackendTesseract       BackendID = "tesseract"
	BackendGosseract       BackendID = "gosseract"
	BackendTabulaGrid      BackendID = "tabula-grid"
	BackendTabulaGeometric BackendID = "tabula-geometric"
	BackendTextColumns     BackendID = "text-columns"
)

// Capability is what a backend produces for a page.
type Capability string

const (
	CapabilityText  Capability = "text"
	CapabilityTable Capability = "table"
	CapabilityOCR   Capability = "ocr"
)

// BackendClass drives merge priority. Text classes and table classes are ranked
// independently.
type BackendClass string

const (
	ClassLayout     BackendClass = "layout"
	ClassPlain      BackendClass = "plain"
	ClassOCR        BackendClass = "ocr"
	ClassStructured BackendClass = "structured"
	ClassGeneric    BackendClass = "generic"
)

// KnownBackends lists every backend id the registry understands, in priority order
// within each capability.
var KnownBackends = []BackendID{
	BackendTabulaLayout,
	BackendPdftotextLayout,
	BackendPdftotext,
	BackendPDFPlain,
	BackendTesseract,
	BackendGosseract,
	BackendTabulaGrid,
	BackendTabulaGeometric,
	BackendTextColumns,
}

// IsKnownBackend reports whether id is one of KnownBackends.
func IsKnownBackend(id BackendID) bool {
	for _, k := range KnownBackends {
		if k == id {
			return true
		}
	}
	return false
}

// FailureTimeout is the failure reason recorded for a backend that exceeded its deadline.
const FailureTimeout = "timeout"
