// Package normalize turns raw extraction output into validated DeliveryRecords.
package normalize

import (
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

var reAngleAddr = regexp.MustCompile(`<([^>]+)>`)

// fields whose failure makes a record incomplete
var requiredFields = map[string]struct{}{
	entity.FieldSender:     {},
	entity.FieldAddress:    {},
	entity.FieldDate:       {},
	entity.FieldItems:      {},
	entity.FieldQuantity:   {},
	entity.FieldUnitPrice:  {},
	entity.FieldExtraction: {},
}

type Config struct {
	// DefaultDateOrder resolves ambiguous numeric dates when the document gives no hint.
	DefaultDateOrder entity.DateOrder
}

type Normalizer struct {
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

func NewNormalizer(cfg Config, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{cfg: cfg, now: time.Now, logger: logger}
}

// Normalize builds a DeliveryRecord from res. It never panics: an unexpected
// failure yields an incomplete record carrying the error as an issue.
func (n *Normalizer) Normalize(doc entity.SourceDocument, res entity.ExtractionResult) (rec entity.DeliveryRecord) {
	rec = entity.DeliveryRecord{
		Fingerprint:    doc.Fingerprint,
		SourceName:     doc.Name,
		SourceStrategy: res.Strategy,
		ProcessedAt:    n.now().UTC(),
	}
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("normalize.panic", "fingerprint", doc.Fingerprint, "panic", fmt.Sprint(r))
			rec.Issues = append(rec.Issues, entity.FieldIssue{Field: "record", Message: fmt.Sprintf("normalization failed: %v", r)})
			rec.Incomplete = true
		}
	}()

	n.sender(&rec, doc, res)
	n.address(&rec, res)
	n.date(&rec, doc, res)
	n.items(&rec, res)
	n.total(&rec, res)
	n.coverage(&rec, res)

	for _, is := range rec.Issues {
		if _, ok := requiredFields[is.Field]; ok {
			rec.Incomplete = true
			break
		}
	}

	if rec.Incomplete {
		n.logger.Info("normalize.record.incomplete",
			"fingerprint", doc.Fingerprint,
			"source", doc.Name,
			"strategy", string(res.Strategy),
			"issues", len(rec.Issues),
		)
	}
	return rec
}

func (n *Normalizer) sender(rec *entity.DeliveryRecord, doc entity.SourceDocument, res entity.ExtractionResult) {
	rec.Sender = cleanText(res.Sender)
	if rec.Sender == "" {
		rec.Sender = EmailAddress(doc.Meta.Sender)
	}
	if rec.Sender == "" {
		rec.Issues = append(rec.Issues, entity.FieldIssue{Field: entity.FieldSender, Message: "sender missing"})
	}
}

func (n *Normalizer) address(rec *entity.DeliveryRecord, res entity.ExtractionResult) {
	rec.Address = cleanText(res.Address)
	if rec.Address == "" || strings.EqualFold(rec.Address, "unknown") {
		rec.Address = ""
		rec.Issues = append(rec.Issues, entity.FieldIssue{Field: entity.FieldAddress, Message: "address missing"})
	}
}

func (n *Normalizer) date(rec *entity.DeliveryRecord, doc entity.SourceDocument, res entity.ExtractionResult) {
	raw := strings.TrimSpace(res.Date)
	if raw == "" && !doc.Meta.Date.IsZero() {
		rec.Date = dateOnly(doc.Meta.Date)
		rec.DateValid = true
		return
	}
	rec.DateRaw = raw
	t, problem := ParseDate(raw, res.DateOrder, n.cfg.DefaultDateOrder)
	if problem != DateOK {
		rec.Issues = append(rec.Issues, entity.FieldIssue{Field: entity.FieldDate, Raw: raw, Message: string(problem)})
		return
	}
	rec.Date = t
	rec.DateValid = true
}

func (n *Normalizer) items(rec *entity.DeliveryRecord, res entity.ExtractionResult) {
	raw := res.Items
	if len(raw) == 0 && strings.TrimSpace(res.ItemsText) != "" {
		var ok bool
		raw, ok = SplitItems(res.ItemsText)
		if !ok {
			rec.Issues = append(rec.Issues, entity.FieldIssue{
				Field:   entity.FieldItems,
				Raw:     truncate(res.ItemsText, 200),
				Message: "item text could not be split into line items",
			})
		}
	}
	if len(raw) == 0 {
		rec.Issues = append(rec.Issues, entity.FieldIssue{Field: entity.FieldItems, Message: "no line items"})
		return
	}

	rec.Items = make([]entity.LineItem, 0, len(raw))
	for i, it := range raw {
		idx := i + 1
		li := entity.LineItem{
			Description:  cleanText(it.Description),
			QuantityRaw:  strings.TrimSpace(it.Quantity),
			UnitPriceRaw: strings.TrimSpace(it.UnitPrice),
		}
		if li.Description == "" {
			rec.Issues = append(rec.Issues, entity.FieldIssue{Field: entity.FieldItems, Item: idx, Message: "item description missing"})
		}

		if li.QuantityRaw == "" {
			rec.Issues = append(rec.Issues, entity.FieldIssue{Field: entity.FieldQuantity, Item: idx, Message: "quantity missing"})
		} else if q, ok := ParseQuantity(li.QuantityRaw); ok {
			li.Quantity, li.QuantityValid = q, true
		} else {
			rec.Issues = append(rec.Issues, entity.FieldIssue{Field: entity.FieldQuantity, Item: idx, Raw: li.QuantityRaw, Message: "quantity is not a non-negative number"})
		}

		if li.UnitPriceRaw == "" {
			rec.Issues = append(rec.Issues, entity.FieldIssue{Field: entity.FieldUnitPrice, Item: idx, Message: "unit price missing"})
		} else if p, ok := ParseAmount(li.UnitPriceRaw); ok {
			li.UnitPrice, li.UnitPriceValid = p, true
		} else {
			rec.Issues = append(rec.Issues, entity.FieldIssue{Field: entity.FieldUnitPrice, Item: idx, Raw: li.UnitPriceRaw, Message: "unit price is not a non-negative amount"})
		}
		rec.Items = append(rec.Items, li)
	}
}

func (n *Normalizer) total(rec *entity.DeliveryRecord, res entity.ExtractionResult) {
	raw := strings.TrimSpace(res.Total)
	if raw == "" {
		return
	}
	if v, ok := ParseAmount(raw); ok {
		rec.Total, rec.TotalValid = v, true
		return
	}
	rec.Issues = append(rec.Issues, entity.FieldIssue{Field: entity.FieldTotal, Raw: raw, Message: "total is not a non-negative amount"})
}

// coverage flags warnings that say pages or text were dropped before fields were read.
func (n *Normalizer) coverage(rec *entity.DeliveryRecord, res entity.ExtractionResult) {
	for _, w := range res.Warnings {
		if entity.LostContent(w) {
			rec.Issues = append(rec.Issues, entity.FieldIssue{Field: entity.FieldExtraction, Raw: truncate(w, 200), Message: "part of the document was not read"})
		}
	}
}

// EmailAddress extracts the bare address from a From header such as
// `"ACME Dispatch" <dispatch@acme.test>`. Unparseable input is returned trimmed.
func EmailAddress(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return ""
	}
	if a, err := mail.ParseAddress(from); err == nil {
		return a.Address
	}
	if m := reAngleAddr.FindStringSubmatch(from); m != nil {
		return strings.TrimSpace(m[1])
	}
	return from
}

func cleanText(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
