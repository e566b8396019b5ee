package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

var (
	reNumericDate = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{2}|\d{4})$`)
	reOrdinal     = regexp.MustCompile(`(\d)(st|nd|rd|th)\b`)
	reSpaces      = regexp.MustCompile(`\s+`)
)

// unambiguous layouts, tried in order
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"2 January 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"Monday, January 2, 2006",
	"Monday 2 January 2006",
	"Mon 2 Jan 2006",
}

// DateProblem explains why ParseDate failed.
type DateProblem string

const (
	DateOK          DateProblem = ""
	DateEmpty       DateProblem = "date missing"
	DateAmbiguous   DateProblem = "ambiguous day/month order"
	DateUnparseable DateProblem = "unrecognized date format"
)

// ParseDate parses raw using the document's hint first, then fallback, for
// ambiguous numeric dates such as 03/04/2024. It never guesses: an ambiguous
// date with no usable order is reported as DateAmbiguous.
func ParseDate(raw string, hint, fallback entity.DateOrder) (time.Time, DateProblem) {
	s := cleanDate(raw)
	if s == "" {
		return time.Time{}, DateEmpty
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), DateOK
		}
	}

	m := reNumericDate.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, DateUnparseable
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	y, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		y += 2000
	}

	order := hint
	if order == entity.DateOrderUnknown {
		order = fallback
	}
	switch {
	case a > 12 && b > 12:
		return time.Time{}, DateUnparseable
	case a > 12:
		order = entity.DateOrderDMY
	case b > 12:
		order = entity.DateOrderMDY
	case a == b:
		order = entity.DateOrderDMY
	}

	var day, month int
	switch order {
	case entity.DateOrderDMY:
		day, month = a, b
	case entity.DateOrderMDY:
		day, month = b, a
	default:
		return time.Time{}, DateAmbiguous
	}
	t := time.Date(y, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, DateUnparseable
	}
	return t, DateOK
}

func cleanDate(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, ".,;:")
	s = reOrdinal.ReplaceAllString(s, "$1")
	s = reSpaces.ReplaceAllString(s, " ")
	return s
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
