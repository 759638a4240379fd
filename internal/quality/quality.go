// Package quality scores merged pages. Scores are diagnostic only; the single
// control decision in the engine (OCR escalation) uses raw word counts.
package quality

import (
	"math"
	"regexp"

	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// Weights of the page score components. They must sum to 1.
type Weights struct {
	Words     float64
	Structure float64
	Table     float64
	Figure    float64
}

// DefaultWeights favour text volume; tables and figures are binary boosts.
var DefaultWeights = Weights{Words: 0.5, Structure: 0.2, Table: 0.15, Figure: 0.15}

func (w Weights) sum() float64 { return w.Words + w.Structure + w.Table + w.Figure }

// Config tunes the scorer. Zero or nil fields take defaults.
type Config struct {
	ExpectedWordsPerPage int      // words component saturates here, default 250
	ParagraphTarget      int      // structure component saturates here, default 2
	MinParagraphWords    int      // shorter blocks are headings or noise, default 5
	MinFloor             *float64 // cap for pages without any text, nil means 0.1
	Weights              Weights
}

func (c Config) withDefaults() Config {
	if c.ExpectedWordsPerPage <= 0 {
		c.ExpectedWordsPerPage = 250
	}
	if c.ParagraphTarget <= 0 {
		c.ParagraphTarget = 2
	}
	if c.MinParagraphWords <= 0 {
		c.MinParagraphWords = 5
	}
	if c.MinFloor == nil {
		floor := 0.1
		c.MinFloor = &floor
	}
	if c.Weights == (Weights{}) || math.Abs(c.Weights.sum()-1) > 1e-9 {
		c.Weights = DefaultWeights
	}
	return c
}

// Scorer computes page and document quality.
type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg.withDefaults()}
}

// ScorePage scores one merged page.
func (s *Scorer) ScorePage(text string, tables, figures int) entity.ExtractionQuality {
	words := entity.CountWords(text)
	paras := CountParagraphs(text, s.cfg.MinParagraphWords)
	w := s.cfg.Weights

	score := w.Words*saturate(float64(words), float64(s.cfg.ExpectedWordsPerPage)) +
		w.Structure*saturate(float64(paras), float64(s.cfg.ParagraphTarget))
	if tables > 0 {
		score += w.Table
	}
	if figures > 0 {
		score += w.Figure
	}
	if words == 0 {
		score = math.Min(score, *s.cfg.MinFloor)
	}

	return entity.ExtractionQuality{
		QualityScore:   round4(clamp(score, 0, 1)),
		WordCount:      words,
		ParagraphCount: paras,
		SentenceCount:  CountSentences(text),
		HasTable:       tables > 0,
		HasFigure:      figures > 0,
	}
}

// Report aggregates page qualities. An empty document scores 0.
func (s *Scorer) Report(pages []entity.PageResult) entity.QualityReport {
	r := entity.QualityReport{PageCount: len(pages)}
	if len(pages) == 0 {
		return r
	}
	var score float64
	var words, tables, figures int
	for _, p := range pages {
		score += p.Quality.QualityScore
		words += p.Quality.WordCount
		if p.Quality.HasTable {
			tables++
		}
		if p.Quality.HasFigure {
			figures++
		}
		if p.OCRUsed {
			r.OCRPages++
		}
		if p.Quality.WordCount == 0 {
			r.FailedPages++
		}
	}
	n := float64(len(pages))
	r.OverallScore = round4(score / n)
	r.AverageWordsPerPage = round4(float64(words) / n)
	r.TableCoverage = round4(float64(tables) / n)
	r.FigureCoverage = round4(float64(figures) / n)
	return r
}

var (
	reBlankLine   = regexp.MustCompile(`\n[ \t]*\n`)
	reSentenceEnd = regexp.MustCompile(`[.!?]+`)
)

// CountSentences counts runs of terminal punctuation.
func CountSentences(text string) int {
	return len(reSentenceEnd.FindAllStringIndex(text, -1))
}

// CountParagraphs counts blank-line separated blocks with at least minWords words.
func CountParagraphs(text string, minWords int) int {
	n := 0
	for _, block := range reBlankLine.Split(text, -1) {
		if entity.CountWords(block) >= minWords {
			n++
		}
	}
	return n
}

func saturate(v, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return math.Min(v/target, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
