package extract

import (
	"time"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/common"
)

// Defaults applied by WithDefaults to zero-valued fields.
const (
	DefaultOCRWordThreshold     = 100
	DefaultMaxWorkers           = 4
	DefaultPageConcurrency      = 2
	DefaultBackendTimeout       = 60 * time.Second
	DefaultOCRTimeout           = 3 * time.Minute
	DefaultExpectedWordsPerPage = 250
	DefaultMinQualityFloor      = 0.1
	DefaultContextRadius        = 120
)

// Options is the explicit configuration of one extraction run. The zero value
// is usable: every zero field takes its default.
type Options struct {
	// UseOCR enables OCR escalation for sparse pages. nil means true.
	UseOCR *bool `json:"use_ocr,omitempty"`
	// OCRWordThreshold: a page whose best text has fewer words is escalated.
	// nil means DefaultOCRWordThreshold; Int(0) never escalates.
	OCRWordThreshold *int `json:"ocr_word_threshold,omitempty"`
	// ConcurrentExtraction runs the backends of a page in parallel. nil means true.
	ConcurrentExtraction *bool `json:"concurrent_extraction,omitempty"`
	// Nil enables every detected backend of the capability.
	EnabledTextBackends  []constants.BackendID `json:"enabled_text_backends,omitempty"`
	EnabledTableBackends []constants.BackendID `json:"enabled_table_backends,omitempty"`

	MaxWorkers       int           `json:"max_workers"`
	PageConcurrency  int           `json:"page_concurrency"`
	BackendTimeout   time.Duration `json:"backend_timeout"`
	OCRTimeout       time.Duration `json:"ocr_timeout"`
	OCRRatePerSecond float64       `json:"ocr_rate_per_second"`

	ExpectedWordsPerPage int `json:"expected_words_per_page"`
	// MinQualityFloor caps the score of pages without text. nil means
	// DefaultMinQualityFloor; Float(0) scores such pages 0.
	MinQualityFloor *float64 `json:"min_quality_floor,omitempty"`
	ContextRadius   int      `json:"context_radius"`
}

// Bool, Int and Float return a pointer to v, for the optional fields whose
// zero value is meaningful.
func Bool(v bool) *bool { return &v }

func Int(v int) *int { return &v }

func Float(v float64) *float64 { return &v }

// OCREnabled reports the effective UseOCR value.
func (o Options) OCREnabled() bool { return o.UseOCR == nil || *o.UseOCR }

// Concurrent reports the effective ConcurrentExtraction value.
func (o Options) Concurrent() bool { return o.ConcurrentExtraction == nil || *o.ConcurrentExtraction }

// Threshold reports the effective OCRWordThreshold value.
func (o Options) Threshold() int {
	if o.OCRWordThreshold == nil {
		return DefaultOCRWordThreshold
	}
	return *o.OCRWordThreshold
}

// QualityFloor reports the effective MinQualityFloor value.
func (o Options) QualityFloor() float64 {
	if o.MinQualityFloor == nil {
		return DefaultMinQualityFloor
	}
	return *o.MinQualityFloor
}

// WithDefaults returns a copy with zero or nil fields replaced by defaults. Negative
// values are kept so Validate can reject them.
func (o Options) WithDefaults() Options {
	if o.UseOCR == nil {
		o.UseOCR = Bool(true)
	}
	if o.ConcurrentExtraction == nil {
		o.ConcurrentExtraction = Bool(true)
	}
	if o.OCRWordThreshold == nil {
		o.OCRWordThreshold = Int(DefaultOCRWordThreshold)
	}
	if o.MaxWorkers == 0 {
		o.MaxWorkers = DefaultMaxWorkers
	}
	if o.PageConcurrency == 0 {
		o.PageConcurrency = DefaultPageConcurrency
	}
	if o.BackendTimeout == 0 {
		o.BackendTimeout = DefaultBackendTimeout
	}
	if o.OCRTimeout == 0 {
		o.OCRTimeout = DefaultOCRTimeout
	}
	if o.ExpectedWordsPerPage == 0 {
		o.ExpectedWordsPerPage = DefaultExpectedWordsPerPage
	}
	if o.MinQualityFloor == nil {
		o.MinQualityFloor = Float(DefaultMinQualityFloor)
	}
	if o.ContextRadius == 0 {
		o.ContextRadius = DefaultContextRadius
	}
	return o
}

// Validate checks the options after defaults are applied. Any failure is a
// configuration error; nothing is extracted.
func (o Options) Validate() error {
	d := o.WithDefaults()
	v := common.NewValidator()
	v.Field("ocr_word_threshold", d.Threshold(), common.NonNegative).
		Field("max_workers", d.MaxWorkers, common.InRange(1, 1024)).
		Field("page_concurrency", d.PageConcurrency, common.InRange(1, 1024)).
		Field("backend_timeout", d.BackendTimeout, common.NonNegative).
		Field("ocr_timeout", d.OCRTimeout, common.NonNegative).
		Field("ocr_rate_per_second", d.OCRRatePerSecond, common.NonNegative).
		Field("expected_words_per_page", d.ExpectedWordsPerPage, common.InRange(1, 100000)).
		Field("min_quality_floor", d.QualityFloor(), common.InRange(0, 1)).
		Field("context_radius", d.ContextRadius, common.InRange(100, 150))
	return v.ConfigError()
}

// Map flattens the effective options for the document record.
func (o Options) Map() map[string]any {
	d := o.WithDefaults()
	return map[string]any{
		"use_ocr":                 d.OCREnabled(),
		"ocr_word_threshold":      d.Threshold(),
		"concurrent_extraction":   d.Concurrent(),
		"enabled_text_backends":   idStrings(d.EnabledTextBackends),
		"enabled_table_backends":  idStrings(d.EnabledTableBackends),
		"max_workers":             d.MaxWorkers,
		"page_concurrency":        d.PageConcurrency,
		"backend_timeout":         d.BackendTimeout.String(),
		"ocr_timeout":             d.OCRTimeout.String(),
		"ocr_rate_per_second":     d.OCRRatePerSecond,
		"expected_words_per_page": d.ExpectedWordsPerPage,
		"min_quality_floor":       d.QualityFloor(),
		"context_radius":          d.ContextRadius,
	}
}

// OptionsFromConfig converts process configuration into run options.
func OptionsFromConfig(c common.ExtractionConfig) Options {
	return Options{
		UseOCR:               Bool(c.UseOCR),
		OCRWordThreshold:     Int(c.OCRWordThreshold),
		ConcurrentExtraction: Bool(c.ConcurrentExtraction),
		EnabledTextBackends:  toIDs(c.EnabledTextBackends),
		EnabledTableBackends: toIDs(c.EnabledTableBackends),
		MaxWorkers:           c.MaxWorkers,
		PageConcurrency:      c.PageConcurrency,
		BackendTimeout:       c.BackendTimeout,
		OCRTimeout:           c.OCRTimeout,
		OCRRatePerSecond:     c.OCRRatePerSecond,
		ExpectedWordsPerPage: c.ExpectedWordsPerPage,
		MinQualityFloor:      Float(c.MinQualityFloor),
		ContextRadius:        c.ContextRadius,
	}
}

func toIDs(list []string) []constants.BackendID {
	if list == nil {
		return nil
	}
	out := make([]constants.BackendID, len(list))
	for i, s := range list {
		out[i] = constants.BackendID(s)
	}
	return out
}

func idStrings(list []constants.BackendID) []string {
	if list == nil {
		return nil
	}
	out := make([]string, len(list))
	for i, id := range list {
		out[i] = string(id)
	}
	return out
}
