package facts

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/report-facts/constants"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// Default returns the standard extractor set in output order. now bounds the
// accepted years.
func Default(now func() time.Time) []Extractor {
	return []Extractor{
		Monetary(),
		Percentage(),
		Year(now),
		Article(),
		Institution(),
		Citation(),
		LegalReference(),
		Figure(),
		Scandal(),
		Keyword(),
	}
}

const number = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`

var units = map[string]struct {
	name string
	mult float64
}{
	"k": {"thousand", 1e3}, "thousand": {"thousand", 1e3},
	"m": {"million", 1e6}, "mn": {"million", 1e6}, "million": {"million", 1e6},
	"b": {"billion", 1e9}, "bn": {"billion", 1e9}, "billion": {"billion", 1e9},
	"t": {"trillion", 1e12}, "tn": {"trillion", 1e12}, "trillion": {"trillion", 1e12},
}

// Monetary matches KSh and USD amounts written with a leading currency
// ("KSh 2.4 billion", "US$5m") or a trailing one ("40 million shillings").
func Monetary() Extractor {
	return Extractor{
		Kind: constants.FactMonetary,
		Patterns: []string{
			`(?i)(\bUS\$|\bUSD\b|\bKES\b|\bKshs?\b\.?|\$)\s?` + number +
				`(?:\s?(thousand|million|billion|trillion|bn|mn|tn)\b|([kmbt])\b)?`,
			`(?i)\b` + number + `\s?(thousand|million|billion|trillion|bn|mn|tn)?\s?(shillings|Kshs?|dollars)\b`,
		},
		Match: func(res []*regexp.Regexp, text string) []Hit {
			var hits []Hit
			for _, m := range res[0].FindAllStringSubmatchIndex(text, -1) {
				unit := group(text, m, 3)
				if unit == "" {
					unit = group(text, m, 4)
				}
				if h, ok := money(m[0], m[1], group(text, m, 2), unit, currencyOf(group(text, m, 1))); ok {
					hits = append(hits, h)
				}
			}
			for _, m := range res[1].FindAllStringSubmatchIndex(text, -1) {
				if h, ok := money(m[0], m[1], group(text, m, 1), group(text, m, 2), currencyOf(group(text, m, 3))); ok {
					hits = append(hits, h)
				}
			}
			return dropOverlaps(hits)
		},
	}
}

func money(start, end int, num, unit, currency string) (Hit, bool) {
	v, err := parseNumber(num)
	if err != nil {
		return Hit{}, false
	}
	f := entity.Fact{Currency: currency, Key: currency}
	if u, ok := units[strings.ToLower(unit)]; ok {
		v *= u.mult
		f.Unit = u.name
	}
	f.Value = &v
	return Hit{Start: start, End: end, Fact: f}, true
}

func currencyOf(tag string) string {
	t := strings.ToLower(strings.TrimSuffix(tag, "."))
	switch {
	case t == "$" || strings.HasPrefix(t, "us") || t == "dollars":
		return constants.CurrencyUSD
	default:
		return constants.CurrencyKSh
	}
}

// Percentage matches "12.5%", "12.5 per cent" and "12.5 percent".
func Percentage() Extractor {
	return Extractor{
		Kind:     constants.FactPercentage,
		Patterns: []string{`(?i)` + number + `\s?(?:%|per\s?cent\b)`},
		Match: func(res []*regexp.Regexp, text string) []Hit {
			var hits []Hit
			for _, m := range res[0].FindAllStringSubmatchIndex(text, -1) {
				v, err := parseNumber(group(text, m, 1))
				if err != nil {
					continue
				}
				hits = append(hits, Hit{Start: m[0], End: m[1], Fact: entity.Fact{Value: &v, Unit: "%"}})
			}
			return hits
		},
	}
}

// Year matches four digit years from 1900 to ten years after now.
func Year(now func() time.Time) Extractor {
	return Extractor{
		Kind:     constants.FactYear,
		Patterns: []string{`\b(19\d{2}|20\d{2})\b`},
		Match: func(res []*regexp.Regexp, text string) []Hit {
			latest := now().Year() + 10
			var hits []Hit
			for _, m := range res[0].FindAllStringSubmatchIndex(text, -1) {
				y, _ := strconv.Atoi(group(text, m, 1))
				if y < 1900 || y > latest {
					continue
				}
				v := float64(y)
				hits = append(hits, Hit{Start: m[0], End: m[1], Fact: entity.Fact{Key: strconv.Itoa(y), Value: &v}})
			}
			return hits
		},
	}
}

var reSpaces = regexp.MustCompile(`\s+`)

// Article matches "Article 43", "Articles 43", "Art. 43" and "Art 43" with
// optional sub-clauses such as "(1)(a)". Key is the article number.
func Article() Extractor {
	return Extractor{
		Kind:     constants.FactArticle,
		Patterns: []string{`(?i)\b(?:Articles?|Art\.?)\s?(\d{1,3}[A-Za-z]?)\b((?:\s?\(\d{1,2}[a-z]?\))*(?:\s?\([a-z]{1,4}\))*)`},
		Match: func(res []*regexp.Regexp, text string) []Hit {
			var hits []Hit
			for _, m := range res[0].FindAllStringSubmatchIndex(text, -1) {
				num := strings.ToUpper(group(text, m, 1))
				f := entity.Fact{Key: num, Qualifier: reSpaces.ReplaceAllString(group(text, m, 2), "")}
				if n, err := strconv.Atoi(strings.TrimRight(num, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")); err == nil {
					v := float64(n)
					f.Value = &v
				}
				hits = append(hits, Hit{Start: m[0], End: m[1], Fact: f})
			}
			return hits
		},
	}
}

type institution struct {
	name     string
	acronyms []string
	aliases  []string
}

var institutions = []institution{
	{"Ethics and Anti-Corruption Commission", []string{"EACC"}, nil},
	{"Office of the Director of Public Prosecutions", []string{"ODPP", "DPP"}, []string{"Director of Public Prosecutions"}},
	{"Directorate of Criminal Investigations", []string{"DCI"}, nil},
	{"Office of the Auditor-General", []string{"OAG"}, []string{"Auditor-General", "Auditor General"}},
	{"Office of the Controller of Budget", []string{"CoB", "OCOB"}, []string{"Controller of Budget"}},
	{"Kenya National Bureau of Statistics", []string{"KNBS"}, nil},
	{"National Treasury", nil, nil},
	{"Central Bank of Kenya", []string{"CBK"}, []string{"Central Bank"}},
	{"Kenya Revenue Authority", []string{"KRA"}, nil},
	{"Commission on Revenue Allocation", []string{"CRA"}, nil},
	{"Independent Electoral and Boundaries Commission", []string{"IEBC"}, nil},
	{"Public Service Commission", []string{"PSC"}, nil},
	{"International Monetary Fund", []string{"IMF"}, nil},
	{"World Bank", nil, nil},
	{"Parliament", nil, []string{"National Assembly"}},
	{"Senate", nil, nil},
	{"County Government", nil, []string{"County Governments"}},
}

// Institution matches acronyms case-sensitively and full names
// case-insensitively. Key is the canonical institution name.
func Institution() Extractor {
	canon := map[string]string{}
	var acronyms, names []string
	for _, in := range institutions {
		for _, a := range in.acronyms {
			canon[a] = in.name
			acronyms = append(acronyms, regexp.QuoteMeta(a))
		}
		for _, n := range append([]string{in.name}, in.aliases...) {
			canon[fold(n)] = in.name
			names = append(names, strings.ReplaceAll(regexp.QuoteMeta(n), " ", `\s+`))
		}
	}
	// Longest first so "Central Bank of Kenya" wins over "Central Bank".
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	return Extractor{
		Kind: constants.FactInstitution,
		Patterns: []string{
			`\b(?:` + strings.Join(acronyms, "|") + `)\b`,
			`(?i)\b(?:` + strings.Join(names, "|") + `)\b`,
		},
		Match: func(res []*regexp.Regexp, text string) []Hit {
			var hits []Hit
			for _, m := range res[0].FindAllStringIndex(text, -1) {
				hits = append(hits, Hit{Start: m[0], End: m[1], Fact: entity.Fact{Key: canon[text[m[0]:m[1]]]}})
			}
			for _, m := range res[1].FindAllStringIndex(text, -1) {
				hits = append(hits, Hit{Start: m[0], End: m[1], Fact: entity.Fact{Key: canon[fold(text[m[0]:m[1]])]}})
			}
			return hits
		},
	}
}

const maxCitation = 999

// Citation matches bracketed references "[1]", "[1, 2]" and "[3-5]". Ranges
// are expanded; Key lists the numbers comma separated.
func Citation() Extractor {
	return Extractor{
		Kind:     constants.FactCitation,
		Patterns: []string{`\[(\d{1,3}(?:\s?[-–,]\s?\d{1,3})*)\]`},
		Match: func(res []*regexp.Regexp, text string) []Hit {
			var hits []Hit
			for _, m := range res[0].FindAllStringSubmatchIndex(text, -1) {
				nums, ok := expandCitation(group(text, m, 1))
				if !ok {
					continue
				}
				parts := make([]string, len(nums))
				for i, n := range nums {
					parts[i] = strconv.Itoa(n)
				}
				hits = append(hits, Hit{Start: m[0], End: m[1], Fact: entity.Fact{Key: strings.Join(parts, ",")}})
			}
			return hits
		},
	}
}

func expandCitation(s string) ([]int, bool) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.ReplaceAll(part, "–", "-")
		lo, hi, isRange := strings.Cut(strings.TrimSpace(part), "-")
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, false
		}
		b := a
		if isRange {
			if b, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || b < a || b > maxCitation {
				return nil, false
			}
		}
		for n := a; n <= b; n++ {
			out = append(out, n)
		}
	}
	return out, len(out) > 0
}

var actLeadIns = map[string]bool{
	"the": true, "under": true, "in": true, "of": true, "and": true, "by": true,
	"per": true, "this": true, "that": true, "section": true, "part": true,
}

// LegalReference matches statutes ("Public Finance Management Act, 2012",
// "Leadership and Integrity Act No. 19 of 2012") and the Constitution of
// Kenya. Key is the statute name with its year when present.
func LegalReference() Extractor {
	return Extractor{
		Kind: constants.FactLegalReference,
		Patterns: []string{
			`\b([A-Z][\w'-]*(?:\s+(?:[A-Z][\w'-]*|and|of|on|for|in|the)){0,10}\s+Act)\b(?:,?\s*(?:\(?No\.\s?(\d+)\s+of\s+)?(\d{4})\)?)?`,
			`(?i)\bConstitution\s+of\s+Kenya(?:,?\s*\(?(\d{4})\)?)?`,
		},
		Match: func(res []*regexp.Regexp, text string) []Hit {
			var hits []Hit
			for _, m := range res[0].FindAllStringSubmatchIndex(text, -1) {
				start, name := trimLeadIns(m[2], group(text, m, 1))
				if !strings.Contains(name, " ") {
					continue
				}
				f := entity.Fact{Key: name}
				if no := group(text, m, 2); no != "" {
					f.Qualifier = "No. " + no
				}
				if y := group(text, m, 3); y != "" {
					v, _ := strconv.ParseFloat(y, 64)
					f.Value = &v
					f.Key = name + ", " + y
				}
				hits = append(hits, Hit{Start: start, End: m[1], Fact: f})
			}
			for _, m := range res[1].FindAllStringSubmatchIndex(text, -1) {
				f := entity.Fact{Key: "Constitution of Kenya"}
				if y := group(text, m, 1); y != "" {
					v, _ := strconv.ParseFloat(y, 64)
					f.Value = &v
					f.Key += ", " + y
				}
				hits = append(hits, Hit{Start: m[0], End: m[1], Fact: f})
			}
			return hits
		},
	}
}

// trimLeadIns drops sentence words that the capitalized-run pattern swallows,
// as in "Under the Public Finance Management Act".
func trimLeadIns(start int, name string) (int, string) {
	for {
		word, rest, ok := strings.Cut(name, " ")
		if !ok || !actLeadIns[strings.ToLower(word)] {
			return start, reSpaces.ReplaceAllString(name, " ")
		}
		trimmed := strings.TrimLeft(rest, " \t\n")
		start += len(name) - len(trimmed)
		name = trimmed
	}
}

const maxCaption = 200

// Figure matches captions such as "Figure 3: Pending bills by county" and
// "Fig. 2.1 - Revenue". Key is the figure number, Qualifier the caption.
func Figure() Extractor {
	return Extractor{
		Kind:     constants.FactFigure,
		Patterns: []string{`(?i)\bFig(?:ure|\.)?\s?(\d{1,3}(?:\.\d{1,2})?)\s?[:.\-–]\s*([^\n]{1,200})`},
		Match: func(res []*regexp.Regexp, text string) []Hit {
			var hits []Hit
			for _, m := range res[0].FindAllStringSubmatchIndex(text, -1) {
				caption := strings.TrimSpace(group(text, m, 2))
				if caption == "" {
					continue
				}
				if r := []rune(caption); len(r) > maxCaption {
					caption = string(r[:maxCaption])
				}
				hits = append(hits, Hit{Start: m[0], End: m[1], Fact: entity.Fact{Key: group(text, m, 1), Qualifier: caption}})
			}
			return hits
		},
	}
}

type scandal struct {
	name     string
	keywords []string
}

var scandals = []scandal{
	{"NYS", []string{"NYS scandal", "National Youth Service scandal"}},
	{"KEMSA", []string{"KEMSA scandal", "COVID scandal"}},
	{"Afya House", []string{"Afya House scandal", "health scandal"}},
	{"Anglo Leasing", []string{"Anglo Leasing"}},
	{"Goldenberg", []string{"Goldenberg scandal"}},
	{"Maize", []string{"maize scandal", "fertilizer scandal"}},
	{"Nyandarua", []string{"Nyandarua scandal"}},
	{"ARV", []string{"ARV scandal", "HIV drugs scandal"}},
}

// Scandal reports the first mention of each known scandal on a page. The KSh
// amount closest to the mention, if any, is attached as Value.
func Scandal() Extractor {
	patterns := make([]string, 0, len(scandals)+1)
	for _, sc := range scandals {
		alts := make([]string, len(sc.keywords))
		for i, k := range sc.keywords {
			alts[i] = strings.ReplaceAll(regexp.QuoteMeta(k), " ", `\s+`)
		}
		patterns = append(patterns, `(?i)\b(?:`+strings.Join(alts, "|")+`)\b`)
	}
	patterns = append(patterns, `(?i)\bKshs?\.?\s?`+number+`\s?(million|billion|bn|mn)\b`)

	return Extractor{
		Kind:     constants.FactScandal,
		Patterns: patterns,
		Match: func(res []*regexp.Regexp, text string) []Hit {
			var amounts []Hit
			for _, m := range res[len(res)-1].FindAllStringSubmatchIndex(text, -1) {
				if h, ok := money(m[0], m[1], group(text, m, 1), group(text, m, 2), constants.CurrencyKSh); ok {
					amounts = append(amounts, h)
				}
			}
			var hits []Hit
			for i, sc := range scandals {
				m := res[i].FindStringIndex(text)
				if m == nil {
					continue
				}
				f := entity.Fact{Key: sc.name, Qualifier: fold(text[m[0]:m[1]])}
				if a, ok := nearest(amounts, m[0], m[1]); ok {
					f.Value, f.Currency, f.Unit = a.Fact.Value, a.Fact.Currency, a.Fact.Unit
				}
				hits = append(hits, Hit{Start: m[0], End: m[1], Fact: f})
			}
			return hits
		},
	}
}

// nearest returns the hit with the smallest gap to [start, end).
func nearest(hits []Hit, start, end int) (Hit, bool) {
	best, gap := Hit{}, -1
	for _, h := range hits {
		d := 0
		switch {
		case h.End <= start:
			d = start - h.End
		case h.Start >= end:
			d = h.Start - end
		}
		if gap < 0 || d < gap {
			best, gap = h, d
		}
	}
	return best, gap >= 0
}

var governanceKeywords = []string{
	"debt", "corruption", "audit", "governance", "transparency", "accountability",
	"public funds", "misappropriation", "embezzlement", "fraud", "oversight",
	"compliance", "violation",
}

// Keyword reports each governance keyword once per page, at its first
// occurrence. Value is the number of occurrences on the page.
func Keyword() Extractor {
	alts := make([]string, len(governanceKeywords))
	for i, k := range governanceKeywords {
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(k), " ", `\s+`)
	}
	return Extractor{
		Kind:     constants.FactKeyword,
		Patterns: []string{`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`},
		Match: func(res []*regexp.Regexp, text string) []Hit {
			first := map[string]int{}
			var hits []Hit
			for _, m := range res[0].FindAllStringIndex(text, -1) {
				key := fold(text[m[0]:m[1]])
				if i, ok := first[key]; ok {
					*hits[i].Fact.Value++
					continue
				}
				one := 1.0
				first[key] = len(hits)
				hits = append(hits, Hit{Start: m[0], End: m[1], Fact: entity.Fact{Key: key, Value: &one}})
			}
			return hits
		},
	}
}

func group(text string, m []int, i int) string {
	if 2*i+1 >= len(m) || m[2*i] < 0 {
		return ""
	}
	return text[m[2*i]:m[2*i+1]]
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// dropOverlaps keeps the earliest, then longest, of overlapping hits.
func dropOverlaps(hits []Hit) []Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Start != hits[j].Start {
			return hits[i].Start < hits[j].Start
		}
		return hits[i].End > hits[j].End
	})
	out := hits[:0]
	end := -1
	for _, h := range hits {
		if h.Start < end {
			continue
		}
		out = append(out, h)
		end = h.End
	}
	return out
}
