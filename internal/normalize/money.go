package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	reNumberToken = regexp.MustCompile(`\d[\d.,]*`)
	reNegative    = regexp.MustCompile(`(^|[^\d])[-−]\s*[$£€¥]?\s*\d|^\(.*\d.*\)$`)
	reSpaceGroups = regexp.MustCompile(`\d+(?:[ \x{00A0}\x{202F}]\d{3})+\b`)
)

// ParseAmount coerces a price-like string to a non-negative float.
// Currency symbols and other text are ignored; the last '.' or ',' is the decimal
// separator when both appear, and a single ',' followed by exactly three digits is
// a thousands separator, as is a space between three-digit groups ("1 234,50").
// Strings without digits, with more than one number, or with a negative value are
// invalid.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if reNegative.MatchString(s) {
		return 0, false
	}
	toks := reNumberToken.FindAllString(collapseSpaceGroups(s), -1)
	if len(toks) != 1 {
		return 0, false
	}
	tok := strings.TrimRight(toks[0], ".,")
	v, err := strconv.ParseFloat(canonicalDecimal(tok), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// ParseQuantity accepts counts like "10", "2.5", "x3", "12 pcs" or "1,000".
func ParseQuantity(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimPrefix(s, "x")
	return ParseAmount(s)
}

// collapseSpaceGroups joins digit groups split by spaces, leaving runs whose
// leading group is longer than three digits untouched.
func collapseSpaceGroups(s string) string {
	return reSpaceGroups.ReplaceAllStringFunc(s, func(m string) string {
		if i := strings.IndexFunc(m, unicode.IsSpace); i > 3 {
			return m
		}
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, m)
	})
}

func canonicalDecimal(tok string) string {
	dots := strings.Count(tok, ".")
	commas := strings.Count(tok, ",")

	switch {
	case dots > 0 && commas > 0:
		lastDot := strings.LastIndex(tok, ".")
		lastComma := strings.LastIndex(tok, ",")
		if lastDot > lastComma {
			// 1,234.50
			return strings.ReplaceAll(tok, ",", "")
		}
		// 1.234,50
		tok = strings.ReplaceAll(tok, ".", "")
		return strings.Replace(tok, ",", ".", 1)
	case commas > 1:
		return strings.ReplaceAll(tok, ",", "")
	case dots > 1:
		return strings.ReplaceAll(tok, ".", "")
	case commas == 1:
		i := strings.Index(tok, ",")
		if len(tok)-i-1 == 3 {
			return strings.Replace(tok, ",", "", 1)
		}
		return strings.Replace(tok, ",", ".", 1)
	default:
		return tok
	}
}
