package normalize

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

var (
	reColumnSep = regexp.MustCompile(`\t+| {2,}`)
	// qty description [unit price] [amount], single-space separated
	reInlineItem = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*(?:x|pcs|units?|ea)?\s+(.+?)(?:\s+([$£€]?\s?\d[\d.,]*))?(?:\s+[$£€]?\s?\d[\d.,]*)?$`)
	reNumericCell = regexp.MustCompile(`^[$£€]?\s?\d[\d.,]*\s*(?:x|pcs|units?|ea)?$`)
)

// SplitItems breaks a concatenated item block into line items. Lines split on
// newlines; columns split on tabs or runs of two or more spaces. Unsplittable
// lines before the first item are treated as headers, later ones as description
// continuations. ok is false when no line could be split; the whole text is then
// returned as a single item.
func SplitItems(text string) (items []entity.RawLineItem, ok bool) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		item, split := ParseItemLine(line)
		switch {
		case split:
			ok = true
			items = append(items, item)
		case len(items) > 0:
			last := &items[len(items)-1]
			last.Description = strings.TrimSpace(last.Description + " " + line)
		}
	}
	if !ok {
		whole := strings.TrimSpace(text)
		if whole == "" {
			return nil, false
		}
		return []entity.RawLineItem{{Description: whole}}, false
	}
	return items, true
}

// ParseItemLine interprets one line of an item table. The second return reports
// whether a quantity or price column was recognized.
func ParseItemLine(line string) (entity.RawLineItem, bool) {
	line = strings.TrimSpace(line)
	cols := reColumnSep.Split(line, -1)
	cols = compact(cols)

	if len(cols) >= 2 {
		return fromColumns(cols)
	}
	if m := reInlineItem.FindStringSubmatch(line); m != nil {
		return entity.RawLineItem{
			Quantity:    m[1],
			Description: strings.TrimSpace(m[2]),
			UnitPrice:   strings.TrimSpace(m[3]),
		}, true
	}
	return entity.RawLineItem{Description: line}, false
}

func fromColumns(cols []string) (entity.RawLineItem, bool) {
	var item entity.RawLineItem
	var desc []string
	var nums []string
	for _, c := range cols {
		if reNumericCell.MatchString(c) {
			nums = append(nums, c)
		} else {
			desc = append(desc, c)
		}
	}
	item.Description = strings.Join(desc, " ")

	// quantity precedes price; a trailing line amount (qty*price) is dropped
	switch len(nums) {
	case 0:
		return item, false
	case 1:
		if hasCurrency(nums[0]) || strings.ContainsAny(nums[0], ".,") {
			item.UnitPrice = nums[0]
		} else {
			item.Quantity = nums[0]
		}
	default:
		item.Quantity = nums[0]
		item.UnitPrice = nums[1]
	}
	return item, true
}

func hasCurrency(s string) bool {
	return strings.ContainsAny(s, "$£€")
}

func compact(cols []string) []string {
	out := cols[:0]
	for _, c := range cols {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
