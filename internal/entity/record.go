package entity

import (
	"time"

	"github.com/joseph-ayodele/deliverynotes/constants"
)

// Field names used in FieldIssue.
const (
	FieldSender     = "sender"
	FieldAddress    = "address"
	FieldDate       = "date"
	FieldItems      = "items"
	FieldQuantity   = "quantity"
	FieldUnitPrice  = "unit_price"
	FieldTotal      = "total"
	FieldExtraction = "extraction" // source only partly read
)

// FieldIssue records why a field could not be normalized.
type FieldIssue struct {
	Field   string `json:"field"`
	Item    int    `json:"item,omitempty"` // 1-based line item index, 0 for record-level fields
	Raw     string `json:"raw,omitempty"`
	Message string `json:"message"`
}

// LineItem is a normalized line item. Quantity and UnitPrice are only meaningful
// when the matching Valid flag is set.
type LineItem struct {
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	QuantityValid  bool    `json:"quantity_valid"`
	QuantityRaw    string  `json:"quantity_raw,omitempty"`
	UnitPrice      float64 `json:"unit_price"`
	UnitPriceValid bool    `json:"unit_price_valid"`
	UnitPriceRaw   string  `json:"unit_price_raw,omitempty"`
}

// DeliveryRecord is the canonical, normalized representation of one delivery note.
type DeliveryRecord struct {
	Fingerprint    string             `json:"fingerprint"`
	SourceName     string             `json:"source_name"`
	Sender         string             `json:"sender"`
	Address        string             `json:"address"`
	Date           time.Time          `json:"date,omitempty"`
	DateValid      bool               `json:"date_valid"`
	DateRaw        string             `json:"date_raw,omitempty"`
	Items          []LineItem         `json:"items"`
	Total          float64            `json:"total,omitempty"`
	TotalValid     bool               `json:"total_valid"`
	Incomplete     bool               `json:"incomplete"`
	Issues         []FieldIssue       `json:"issues,omitempty"`
	SourceStrategy constants.Strategy `json:"source_strategy"`
	ProcessedAt    time.Time          `json:"processed_at"`
}

// DateString renders the date for tabular output, falling back to the raw text.
func (r DeliveryRecord) DateString() string {
	if r.DateValid {
		return r.Date.Format("2006-01-02")
	}
	return r.DateRaw
}
