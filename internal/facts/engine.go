// Package facts finds monetary amounts, percentages, years, article numbers,
// institutions, citations, statute references, figure captions, scandal
// mentions and governance keywords in merged page text.
package facts

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// Hit is one match reported by an extractor. Start and End are byte offsets
// into the text; the engine fills Context, Offset and Page.
type Hit struct {
	Start, End int
	Fact       entity.Fact
}

// Extractor is one independent pattern matcher. Patterns are compiled by the
// engine; Match receives them in the same order.
type Extractor struct {
	Kind     constants.FactKind
	Patterns []string
	Match    func(res []*regexp.Regexp, text string) []Hit
}

type compiled struct {
	Extractor
	res []*regexp.Regexp
}

// Engine runs its extractors in order over each page. It is safe for
// concurrent use.
type Engine struct {
	extractors []compiled
	disabled   []constants.FactKind
	radius     int
	log        *slog.Logger
}

// NewEngine compiles the given extractors, or Default(time.Now) when none are
// passed. An extractor whose pattern does not compile is disabled and logged;
// the others are unaffected.
func NewEngine(radius int, logger *slog.Logger, extractors ...Extractor) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if len(extractors) == 0 {
		extractors = Default(time.Now)
	}
	e := &Engine{radius: radius, log: logger}
	for _, x := range extractors {
		res := make([]*regexp.Regexp, 0, len(x.Patterns))
		var err error
		for _, p := range x.Patterns {
			var re *regexp.Regexp
			if re, err = regexp.Compile(p); err != nil {
				break
			}
			res = append(res, re)
		}
		if err != nil {
			logger.Error("facts.extractor.disabled", "kind", x.Kind, "err", err)
			e.disabled = append(e.disabled, x.Kind)
			continue
		}
		e.extractors = append(e.extractors, compiled{Extractor: x, res: res})
	}
	return e
}

// Disabled lists extractors that failed to compile.
func (e *Engine) Disabled() []constants.FactKind { return e.disabled }

// Extract runs every enabled extractor over text. Facts are grouped by
// extractor in registration order and sorted by offset inside a group.
// Overlaps between extractors are kept.
func (e *Engine) Extract(page int, text string) []entity.Fact {
	out := []entity.Fact{}
	if text == "" {
		return out
	}
	w := newWindow(text, e.radius)
	for _, x := range e.extractors {
		hits, err := e.run(x, text)
		if err != nil {
			e.log.Error("facts.extractor.panic", "kind", x.Kind, "page", page, "err", err)
			continue
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Start < hits[j].Start })
		for _, h := range hits {
			if h.Start < 0 || h.End < h.Start || h.End > len(text) {
				e.log.Warn("facts.hit.out_of_range", "kind", x.Kind, "page", page, "start", h.Start, "end", h.End, "len", len(text))
				continue
			}
			f := h.Fact
			f.Kind = x.Kind
			if f.Literal == "" {
				f.Literal = text[h.Start:h.End]
			}
			f.Offset = w.runeOffset(h.Start)
			f.Context = w.context(h.Start, h.End)
			f.Page = page
			out = append(out, f)
		}
	}
	return out
}

func (e *Engine) run(x compiled, text string) (hits []Hit, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return x.Match(x.res, text), nil
}

// window cuts context around matches. Distances are in runes.
type window struct {
	text   string
	runes  []rune
	radius int
}

func newWindow(text string, radius int) window {
	return window{text: text, runes: []rune(text), radius: radius}
}

func (w window) runeOffset(byteOff int) int {
	return utf8.RuneCountInString(w.text[:byteOff])
}

// context returns up to radius runes either side of the match. When a
// sentence boundary lies inside the radius the window stops there.
func (w window) context(start, end int) string {
	s, e := w.runeOffset(start), w.runeOffset(end)
	lo := max(0, s-w.radius)
	hi := min(len(w.runes), e+w.radius)

	for i := s - 1; i >= lo; i-- {
		if w.boundary(i) {
			lo = i + 1
			break
		}
	}
	for i := e; i < hi; i++ {
		if w.boundary(i) {
			hi = i
			if w.runes[i] != '\n' {
				hi++
			}
			break
		}
	}
	return trimSpace(w.runes[lo:hi])
}

// boundary: newline, ! or ?, or a period followed by space or end of text.
// Periods inside numbers and after abbreviations like "Art." do not count.
func (w window) boundary(i int) bool {
	switch w.runes[i] {
	case '\n', '!', '?':
		return true
	case '.':
		if i+1 < len(w.runes) && !unicode.IsSpace(w.runes[i+1]) {
			return false
		}
		return !abbreviations[strings.ToLower(w.wordBefore(i))]
	}
	return false
}

var abbreviations = map[string]bool{
	"art": true, "arts": true, "no": true, "cap": true, "sec": true, "s": true,
	"mr": true, "mrs": true, "dr": true, "hon": true, "vol": true, "fig": true,
	"ltd": true, "inc": true, "cf": true, "e.g": true, "i.e": true, "etc": true,
}

func (w window) wordBefore(i int) string {
	j := i
	for j > 0 && (unicode.IsLetter(w.runes[j-1]) || w.runes[j-1] == '.') {
		j--
	}
	return string(w.runes[j:i])
}

func trimSpace(r []rune) string {
	i, j := 0, len(r)
	for i < j && unicode.IsSpace(r[i]) {
		i++
	}
	for j > i && unicode.IsSpace(r[j-1]) {
		j--
	}
	return string(r[i:j])
}
