package facts

import (
	"math"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

func fixedNow() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

func newTestEngine() *Engine {
	return NewEngine(120, nil, Default(fixedNow)...)
}

func byKind(facts []entity.Fact, kind constants.FactKind) []entity.Fact {
	var out []entity.Fact
	for _, f := range facts {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

func keys(facts []entity.Fact) []string {
	out := []string{}
	for _, f := range facts {
		out = append(out, f.Key)
	}
	return out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}

func TestArticleSurfaceForms(t *testing.T) {
	text := "under Article 35 and Art. 35 of the Constitution"
	got := byKind(newTestEngine().Extract(3, text), constants.FactArticle)
	if len(got) != 2 {
		t.Fatalf("got %d article facts, want 2: %+v", len(got), got)
	}
	for _, f := range got {
		if f.Key != "35" || f.Page != 3 {
			t.Errorf("fact = %+v, want key 35 on page 3", f)
		}
	}
	if got[0].Literal != "Article 35" || got[1].Literal != "Art. 35" {
		t.Errorf("literals = %q, %q", got[0].Literal, got[1].Literal)
	}
	if got[0].Context != text {
		t.Errorf("context = %q, want the whole sentence", got[0].Context)
	}
}

func TestArticleForms(t *testing.T) {
	text := "See Article 43(1)(a), Articles 201 and art 10; also ART 43 and Article 260A."
	got := byKind(newTestEngine().Extract(1, text), constants.FactArticle)
	if diff := cmp.Diff([]string{"43", "201", "10", "43", "260A"}, keys(got)); diff != "" {
		t.Fatalf("keys (-want +got):\n%s", diff)
	}
	if got[0].Qualifier != "(1)(a)" {
		t.Errorf("qualifier = %q, want (1)(a)", got[0].Qualifier)
	}
	if got[4].Value == nil || *got[4].Value != 260 {
		t.Errorf("260A value = %v", got[4].Value)
	}
}

func TestMonetary(t *testing.T) {
	tests := []struct {
		text     string
		literal  string
		value    float64
		currency string
		unit     string
	}{
		{"Revenue of KSh 2.4 billion was collected.", "KSh 2.4 billion", 2.4e9, "KSh", "billion"},
		{"Public debt rose to KSh 12.05T by June.", "KSh 12.05T", 12.05e12, "KSh", "trillion"},
		{"They signed a US$5m loan.", "US$5m", 5e6, "USD", "million"},
		{"USD 1,250,000 was disbursed.", "USD 1,250,000", 1250000, "USD", ""},
		{"A grant of 40 million shillings.", "40 million shillings", 40e6, "KSh", "million"},
		{"It cost $300 thousand.", "$300 thousand", 300000, "USD", "thousand"},
		{"Allowances of Kshs. 500 per day.", "Kshs. 500", 500, "KSh", ""},
		{"Only 5 dollars.", "5 dollars", 5, "USD", ""},
		{"An extra KSh 3.1bn in arrears.", "KSh 3.1bn", 3.1e9, "KSh", "billion"},
	}
	e := newTestEngine()
	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			got := byKind(e.Extract(1, tt.text), constants.FactMonetary)
			if len(got) != 1 {
				t.Fatalf("got %d monetary facts, want 1: %+v", len(got), got)
			}
			f := got[0]
			if f.Literal != tt.literal || f.Currency != tt.currency || f.Unit != tt.unit {
				t.Errorf("fact = %q %s %q, want %q %s %q", f.Literal, f.Currency, f.Unit, tt.literal, tt.currency, tt.unit)
			}
			if f.Value == nil || !approx(*f.Value, tt.value) {
				t.Errorf("value = %v, want %v", f.Value, tt.value)
			}
		})
	}
}

func TestMonetaryOverlapKeepsPrefixForm(t *testing.T) {
	got := byKind(newTestEngine().Extract(1, "KSh 40 million shillings"), constants.FactMonetary)
	if len(got) != 1 || got[0].Literal != "KSh 40 million" {
		t.Errorf("got %+v", got)
	}
}

func TestPercentage(t *testing.T) {
	got := byKind(newTestEngine().Extract(1, "Inflation of 6.8% and 12 per cent growth, 3 percent, 1,250.5%."), constants.FactPercentage)
	want := []float64{6.8, 12, 3, 1250.5}
	if len(got) != len(want) {
		t.Fatalf("got %d facts, want %d", len(got), len(want))
	}
	for i, f := range got {
		if f.Value == nil || *f.Value != want[i] || f.Unit != "%" {
			t.Errorf("fact %d = %+v, want %v%%", i, f, want[i])
		}
	}
}

func TestYearRange(t *testing.T) {
	got := byKind(newTestEngine().Extract(1, "In 1899, 1963, 2010 and 2035 but not 2036 or 12019."), constants.FactYear)
	if diff := cmp.Diff([]string{"1963", "2010", "2035"}, keys(got)); diff != "" {
		t.Errorf("years (-want +got):\n%s", diff)
	}
}

func TestInstitutions(t *testing.T) {
	text := "The EACC and the Ethics and Anti-Corruption Commission referred the file to the ODPP. " +
		"The Central Bank of Kenya and the auditor general disagreed. A cob of maize."
	got := byKind(newTestEngine().Extract(1, text), constants.FactInstitution)
	want := []string{
		"Ethics and Anti-Corruption Commission",
		"Ethics and Anti-Corruption Commission",
		"Office of the Director of Public Prosecutions",
		"Central Bank of Kenya",
		"Office of the Auditor-General",
	}
	if diff := cmp.Diff(want, keys(got)); diff != "" {
		t.Errorf("institutions (-want +got):\n%s", diff)
	}
	if got[3].Literal != "Central Bank of Kenya" {
		t.Errorf("literal = %q, want the longest name", got[3].Literal)
	}
}

func TestCitations(t *testing.T) {
	got := byKind(newTestEngine().Extract(1, "As shown [1], [2, 3] and [5–7] but not [2019] or [9-4]."), constants.FactCitation)
	if diff := cmp.Diff([]string{"1", "2,3", "5,6,7"}, keys(got)); diff != "" {
		t.Errorf("citations (-want +got):\n%s", diff)
	}
}

func TestLegalReferences(t *testing.T) {
	text := "Under the Public Finance Management Act, 2012 and the Leadership and Integrity Act No. 19 of 2012, " +
		"read with the Constitution of Kenya, 2010. This Act applies."
	got := byKind(newTestEngine().Extract(1, text), constants.FactLegalReference)
	want := []string{
		"Public Finance Management Act, 2012",
		"Leadership and Integrity Act, 2012",
		"Constitution of Kenya, 2010",
	}
	if diff := cmp.Diff(want, keys(got)); diff != "" {
		t.Fatalf("references (-want +got):\n%s", diff)
	}
	if got[0].Literal != "Public Finance Management Act, 2012" {
		t.Errorf("literal = %q", got[0].Literal)
	}
	if got[1].Qualifier != "No. 19" {
		t.Errorf("qualifier = %q", got[1].Qualifier)
	}
}

func TestExtractorsOverlapIndependently(t *testing.T) {
	facts := newTestEngine().Extract(1, "Article 43 of the Constitution of Kenya, 2010 binds Parliament.")
	for _, kind := range []constants.FactKind{constants.FactArticle, constants.FactLegalReference, constants.FactYear, constants.FactInstitution} {
		if n := len(byKind(facts, kind)); n != 1 {
			t.Errorf("%s facts = %d, want 1", kind, n)
		}
	}
}

func TestBadPatternDisablesOnlyItsExtractor(t *testing.T) {
	broken := Extractor{Kind: constants.FactMonetary, Patterns: []string{`(KSh`}, Match: Monetary().Match}
	e := NewEngine(120, nil, broken, Year(fixedNow))
	if diff := cmp.Diff([]constants.FactKind{constants.FactMonetary}, e.Disabled()); diff != "" {
		t.Errorf("Disabled() (-want +got):\n%s", diff)
	}
	facts := e.Extract(1, "KSh 5 billion in 2020")
	if len(facts) != 1 || facts[0].Kind != constants.FactYear {
		t.Errorf("facts = %+v, want only the year", facts)
	}
}

func TestPanickingExtractorIsIsolated(t *testing.T) {
	bad := Extractor{
		Kind:     constants.FactCitation,
		Patterns: []string{`\[`},
		Match:    func([]*regexp.Regexp, string) []Hit { panic("boom") },
	}
	e := NewEngine(120, nil, Year(fixedNow), bad, Percentage())
	facts := e.Extract(1, "In 2020 growth was 5%. See [1].")
	if len(byKind(facts, constants.FactYear)) != 1 || len(byKind(facts, constants.FactPercentage)) != 1 {
		t.Errorf("facts = %+v", facts)
	}
}

func TestOutOfRangeHitsAreDropped(t *testing.T) {
	sloppy := Extractor{
		Kind:     constants.FactCitation,
		Patterns: []string{`\[`},
		Match: func([]*regexp.Regexp, string) []Hit {
			return []Hit{{Start: -1, End: 3}, {Start: 2, End: 999}, {Start: 5, End: 4}, {Start: 0, End: 4}}
		},
	}
	facts := NewEngine(120, nil, sloppy).Extract(1, "See [1] here.")
	if len(facts) != 1 || facts[0].Literal != "See " {
		t.Errorf("facts = %+v, want only the in-range hit", facts)
	}
}

func TestFigureCaptions(t *testing.T) {
	text := "Figure 3: Pending bills by county\nFig. 2.1 - Revenue trend\nAs see Figure 4 below, arrears grew."
	got := byKind(newTestEngine().Extract(2, text), constants.FactFigure)
	if diff := cmp.Diff([]string{"3", "2.1"}, keys(got)); diff != "" {
		t.Fatalf("figures (-want +got):\n%s", diff)
	}
	if got[0].Qualifier != "Pending bills by county" || got[1].Qualifier != "Revenue trend" {
		t.Errorf("captions = %q, %q", got[0].Qualifier, got[1].Qualifier)
	}
	long := "Figure 9: " + strings.Repeat("x", 300)
	f := byKind(newTestEngine().Extract(1, long), constants.FactFigure)
	if len(f) != 1 || utf8.RuneCountInString(f[0].Qualifier) != maxCaption {
		t.Errorf("long caption = %+v", f)
	}
}

func TestScandals(t *testing.T) {
	text := "The NYS scandal cost KSh 9 billion and was widely reported in the press. " +
		"Anglo Leasing cost KSh 7 billion. Later the National Youth Service scandal resurfaced."
	got := byKind(newTestEngine().Extract(1, text), constants.FactScandal)
	if diff := cmp.Diff([]string{"NYS", "Anglo Leasing"}, keys(got)); diff != "" {
		t.Fatalf("scandals (-want +got):\n%s", diff)
	}
	if got[0].Qualifier != "nys scandal" || got[0].Value == nil || !approx(*got[0].Value, 9e9) || got[0].Currency != "KSh" {
		t.Errorf("NYS fact = %+v", got[0])
	}
	if got[1].Value == nil || !approx(*got[1].Value, 7e9) {
		t.Errorf("Anglo Leasing value = %v, want the closer amount", got[1].Value)
	}

	bare := byKind(newTestEngine().Extract(1, "The Goldenberg scandal is old news."), constants.FactScandal)
	if len(bare) != 1 || bare[0].Value != nil {
		t.Errorf("scandal without amount = %+v", bare)
	}
}

func TestGovernanceKeywords(t *testing.T) {
	text := "Audit findings show corruption. The audit flagged fraud and the auditor asked for more audit work on public\nfunds."
	got := byKind(newTestEngine().Extract(1, text), constants.FactKeyword)
	if diff := cmp.Diff([]string{"audit", "corruption", "fraud", "public funds"}, keys(got)); diff != "" {
		t.Fatalf("keywords (-want +got):\n%s", diff)
	}
	if got[0].Value == nil || *got[0].Value != 3 {
		t.Errorf("audit count = %v, want 3", got[0].Value)
	}
	if got[0].Literal != "Audit" || got[0].Offset != 0 {
		t.Errorf("first audit = %+v", got[0])
	}
}

func TestContextWindow(t *testing.T) {
	e := newTestEngine()

	t.Run("sentence boundaries", func(t *testing.T) {
		f := byKind(e.Extract(1, "First sentence here. Revenue was KSh 5 billion in total! Another one follows."), constants.FactMonetary)[0]
		if f.Context != "Revenue was KSh 5 billion in total!" {
			t.Errorf("context = %q", f.Context)
		}
	})

	t.Run("decimal point is not a boundary", func(t *testing.T) {
		f := byKind(e.Extract(1, "Growth hit 5.4% in 2023. Next."), constants.FactYear)[0]
		if f.Context != "Growth hit 5.4% in 2023." {
			t.Errorf("context = %q", f.Context)
		}
	})

	t.Run("newline is a boundary", func(t *testing.T) {
		f := byKind(e.Extract(1, "Table 4\nTotal KSh 9 million\nSource: Treasury"), constants.FactMonetary)[0]
		if f.Context != "Total KSh 9 million" {
			t.Errorf("context = %q", f.Context)
		}
	})

	t.Run("hard truncation", func(t *testing.T) {
		pad := strings.Repeat("ab ", 200)
		text := pad + "KSh 5 billion " + pad
		f := byKind(e.Extract(1, text), constants.FactMonetary)[0]
		if n := utf8.RuneCountInString(f.Context); n > 2*120+len("KSh 5 billion") {
			t.Errorf("context has %d runes", n)
		}
		if !strings.Contains(f.Context, "KSh 5 billion") {
			t.Errorf("context %q misses the match", f.Context)
		}
	})

	t.Run("multibyte text", func(t *testing.T) {
		text := strings.Repeat("é", 130) + " KSh 5 " + strings.Repeat("ü", 130)
		f := byKind(e.Extract(1, text), constants.FactMonetary)[0]
		if !utf8.ValidString(f.Context) {
			t.Errorf("context is not valid UTF-8")
		}
		if f.Offset != 131 {
			t.Errorf("offset = %d, want rune offset 131", f.Offset)
		}
	})
}

func TestEmptyText(t *testing.T) {
	facts := newTestEngine().Extract(1, "")
	if facts == nil || len(facts) != 0 {
		t.Errorf("Extract(\"\") = %#v, want empty slice", facts)
	}
}
