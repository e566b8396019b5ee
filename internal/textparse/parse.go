// Package textparse recovers delivery-note fields from recognized plain text.
// Every field is best effort; a field that no pattern matches is left empty.
package textparse

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/deliverynotes/internal/entity"
	"github.com/joseph-ayodele/deliverynotes/internal/normalize"
)

var (
	addressLabelled = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:ship(?:ping)?\s*(?:to|address)|deliver(?:y)?\s*(?:to|address)|recipient)[:\s]+([^\n]+(?:\n[^\n]+){0,3})`),
		regexp.MustCompile(`(?i)(?:customer|buyer|client|bill\s+to)[:\s]+([^\n]+(?:\n[^\n]+){0,3})`),
		regexp.MustCompile(`(?i)customer\s*\d*\s*\(([^)]+)\)`),
	}
	addressFreeform = []*regexp.Regexp{
		regexp.MustCompile(`\b\d+\s+[A-Za-z ]+(?:Road|Rd|Street|St|Avenue|Ave|Drive|Dr|Lane|Ln|Court|Ct|Boulevard|Blvd|Way|Place|Pl|Terrace|Ter)[, ]+[A-Za-z ]+(?:,\s*[A-Z]{2})?\s*\d{5}(?:-\d{4})?\b`),
		regexp.MustCompile(`\b[A-Za-z ]+,\s*[A-Z]{2}\s*\d{5}(?:-\d{4})?\b`),
	}
	addressLeadIn = regexp.MustCompile(`(?i)^(?:attention|attn|c/o|care of|name|address|customer|recipient|deliver to|ship to)[:\s]+`)
	addressNoise  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)total weight:.*$`),
		regexp.MustCompile(`(?i)delivery method:.*$`),
		regexp.MustCompile(`(?i)qty\s+description.*$`),
		regexp.MustCompile(`(?i)unit price\s+amount.*$`),
		regexp.MustCompile(`(?i)\b(?:delivery|despatch|dispatch|order|invoice)?\s*date[:\s].*$`),
	}

	senderLabelled = regexp.MustCompile(`(?im)^\s*(?:from|supplier|sender|shipper|sold\s+by|vendor|despatched\s+by|dispatched\s+by)[:\s]+([^\n]+)`)

	dateLabelled = regexp.MustCompile(`(?i)(?:delivery\s+date|despatch\s+date|dispatch\s+date|order\s+date|invoice\s+date|date)[:\s|]+([^\n|]+)`)
	dateFreeform = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{4}[/-]\d{1,2}[/-]\d{1,2})\b`),
		regexp.MustCompile(`\b(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})\b`),
		regexp.MustCompile(`(?i)\b(\d{1,2}(?:st|nd|rd|th)?\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?,?\s+\d{4})\b`),
		regexp.MustCompile(`(?i)\b((?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4})\b`),
	}

	totalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:grand\s+total|total|sum|amount\s+due)[:\s]+([$€£]?\s?[\d,]+\.\d{2})`),
		regexp.MustCompile(`(?i)([$€£]?\s?[\d,]+\.\d{2})\s+(?:grand\s+total|total)`),
		regexp.MustCompile(`(?i)\btotal\s*([$€£]?\s?[\d,.]+)`),
	}

	itemsStart = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:product\s+code|item|sku|description|descript|qty|quantity|unit\s+price|ordered|delivered)\b`),
	}
	itemsEnd = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:total|subtotal|grand\s+total|received\s+by|signature|signed)\b`),
	}
	reDigit = regexp.MustCompile(`\d`)

	reUSZip    = regexp.MustCompile(`\b[A-Z]{2}\s*\d{5}(?:-\d{4})?\b`)
	reUKPost   = regexp.MustCompile(`(?i)\b[A-Z]{1,2}\d[A-Z\d]?\s*\d[A-Z]{2}\b`)
	reFormatDM = regexp.MustCompile(`(?i)\bdd[/.-]mm[/.-]yy(?:yy)?\b`)
	reFormatMD = regexp.MustCompile(`(?i)\bmm[/.-]dd[/.-]yy(?:yy)?\b`)
	reSpaces   = regexp.MustCompile(`\s+`)
)

// Parse extracts fields from text. Strategy and Method are left to the caller.
func Parse(text string) entity.ExtractionResult {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	res := entity.ExtractionResult{
		Sender:  Sender(text),
		Address: Address(text),
		Date:    Date(text),
		Total:   Total(text),
	}
	res.Items = Items(text)
	res.DateOrder = DateOrderHint(text, res.Address)
	return res
}

// Sender finds a labelled supplier line such as "From: ACME Ltd".
func Sender(text string) string {
	if m := senderLabelled.FindStringSubmatch(text); m != nil {
		return clean(m[1])
	}
	return ""
}

// Address tries labelled blocks first, then US-style street/zip lines.
func Address(text string) string {
	for _, re := range addressLabelled {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		addr := clean(m[1])
		addr = addressLeadIn.ReplaceAllString(addr, "")
		for _, n := range addressNoise {
			addr = n.ReplaceAllString(addr, "")
		}
		addr = strings.Trim(clean(strings.NewReplacer(`"`, "", `'`, "").Replace(addr)), " ,")
		if addr != "" && !strings.EqualFold(addr, "unknown") {
			return addr
		}
	}
	for _, re := range addressFreeform {
		if m := re.FindString(text); m != "" {
			return clean(m)
		}
	}
	return ""
}

// Date returns the first labelled date, or the first date-shaped token.
func Date(text string) string {
	if m := dateLabelled.FindStringSubmatch(text); m != nil {
		candidate := strings.TrimSpace(m[1])
		for _, re := range dateFreeform {
			if d := re.FindStringSubmatch(candidate); d != nil {
				return d[1]
			}
		}
	}
	for _, re := range dateFreeform {
		if d := re.FindStringSubmatch(text); d != nil {
			return d[1]
		}
	}
	return ""
}

// Total returns the document total as printed, or "" when absent.
func Total(text string) string {
	for _, re := range totalPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// Items collects the product table: lines after a header row and before a
// totals or signature line. Lines without digits are ignored.
func Items(text string) []entity.RawLineItem {
	var (
		items   []entity.RawLineItem
		started bool
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !started {
			if matchesAny(itemsStart, line) {
				started = true
			}
			continue
		}
		if matchesAny(itemsEnd, line) {
			break
		}
		if len(line) <= 5 || !reDigit.MatchString(line) {
			continue
		}
		item, ok := normalize.ParseItemLine(line)
		if !ok || item.Description == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// DateOrderHint guesses the day/month convention from explicit format labels
// or the postal code style of the delivery address.
func DateOrderHint(text, address string) entity.DateOrder {
	switch {
	case reFormatDM.MatchString(text):
		return entity.DateOrderDMY
	case reFormatMD.MatchString(text):
		return entity.DateOrderMDY
	case address != "" && reUSZip.MatchString(address):
		return entity.DateOrderMDY
	case address != "" && reUKPost.MatchString(address):
		return entity.DateOrderDMY
	default:
		return entity.DateOrderUnknown
	}
}

func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func clean(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}
