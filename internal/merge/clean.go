package merge

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reHSpace     = regexp.MustCompile(`[ \t\x{00A0}]+`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reSplitWord  = regexp.MustCompile(`\bA rticle\b`)
	reMixedToken = regexp.MustCompile(`[A-Za-z0-9]+`)
	reHyphenWrap = regexp.MustCompile(`(\p{L})-\n(\p{L})`)
)

// bullets maps private-use glyphs that symbol fonts extract as junk.
var bullets = strings.NewReplacer(
	"\uf0b7", "•",
	"\uf0a7", "•",
	"\uf0d8", "•",
	"\uf076", "•",
	"\u25aa", "•",
)

// Clean normalizes merged page text: unicode compatibility forms, line endings,
// horizontal whitespace, wrapped lines and OCR digit/letter confusions.
// Paragraph breaks are kept as single blank lines.
func Clean(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFKC.String(s)
	s = reCRLF.ReplaceAllString(s, "\n")
	s = strings.ReplaceAll(s, "\f", "\n\n")
	s = bullets.Replace(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == unicode.ReplacementChar, unicode.IsControl(r), unicode.Is(unicode.Co, r):
			return -1
		}
		return r
	}, s)
	s = reSplitWord.ReplaceAllString(s, "Article")

	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimSpace(reHSpace.ReplaceAllString(ln, " "))
	}
	s = strings.Join(rejoinWraps(lines), "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	s = fixDigitsInWords(s)
	return strings.TrimSpace(s)
}

// rejoinWraps merges a line into the previous one when the previous ends in a
// lowercase letter (or a hyphen after one) and the line starts lowercase.
func rejoinWraps(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		if len(out) == 0 || ln == "" {
			out = append(out, ln)
			continue
		}
		prev := out[len(out)-1]
		first := firstRune(ln)
		if prev == "" || !unicode.IsLower(first) {
			out = append(out, ln)
			continue
		}
		pr := []rune(prev)
		last := pr[len(pr)-1]
		switch {
		case last == '-' && len(pr) > 1 && unicode.IsLower(pr[len(pr)-2]):
			out[len(out)-1] = string(pr[:len(pr)-1]) + ln
		case unicode.IsLower(last):
			out[len(out)-1] = prev + " " + ln
		default:
			out = append(out, ln)
		}
	}
	return out
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

var digitLookalikes = map[byte][2]byte{
	'0': {'o', 'O'},
	'1': {'l', 'I'},
	'5': {'s', 'S'},
}

// fixDigitsInWords replaces 0, 1 and 5 sandwiched between letters in tokens
// that are mostly letters ("G0vernment", "Pub1ic"). Codes like H1N1 or COVID19
// have too few letters or no letter after the digit and are left alone, and so
// do clause numbers glued to their heading ("Article1A", "Section5B").
func fixDigitsInWords(s string) string {
	return reMixedToken.ReplaceAllStringFunc(s, func(tok string) string {
		letters, digits := 0, 0
		for i := 0; i < len(tok); i++ {
			if isASCIILetter(tok[i]) {
				letters++
			} else {
				digits++
			}
		}
		if digits == 0 || letters < 4 || digits > 2 {
			return tok
		}
		b := []byte(tok)
		for i := 1; i < len(b)-1; i++ {
			alt, ok := digitLookalikes[b[i]]
			if !ok || !isASCIILetter(b[i-1]) || !isASCIILetter(b[i+1]) {
				continue
			}
			if i == len(b)-2 && isUpper(b[i+1]) {
				continue
			}
			if isUpper(b[i-1]) && isUpper(b[i+1]) {
				b[i] = alt[1]
			} else {
				b[i] = alt[0]
			}
		}
		return string(b)
	})
}

func isASCIILetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isUpper(c byte) bool       { return c >= 'A' && c <= 'Z' }

// Completeness is the merge signal for text: non-space runes left after
// removing hyphenation breaks, form feeds and extraction junk.
func Completeness(s string) int {
	s = reHyphenWrap.ReplaceAllString(s, "$1$2")
	n := 0
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == unicode.ReplacementChar || unicode.Is(unicode.Co, r) {
			continue
		}
		n++
	}
	return n
}
