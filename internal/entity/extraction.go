package entity

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/deliverynotes/constants"
)

// DateOrder hints how to read ambiguous numeric dates like 03/04/2024.
type DateOrder string

const (
	DateOrderUnknown DateOrder = ""
	DateOrderDMY     DateOrder = "DMY"
	DateOrderMDY     DateOrder = "MDY"
)

// RawLineItem is a line item as the extractor saw it, all fields still text.
type RawLineItem struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity,omitempty"`
	UnitPrice   string `json:"unit_price,omitempty"`
}

// ExtractionResult is the common output of every extraction strategy.
type ExtractionResult struct {
	Sender  string        `json:"sender,omitempty"`
	Address string        `json:"address,omitempty"`
	Date    string        `json:"date,omitempty"`
	Items   []RawLineItem `json:"items,omitempty"`
	// ItemsText holds an unsplit item block when the extractor could not itemize.
	ItemsText string             `json:"items_text,omitempty"`
	Total     string             `json:"total,omitempty"`
	DateOrder DateOrder          `json:"date_order,omitempty"`
	Strategy  constants.Strategy `json:"strategy"`
	Method    string             `json:"method,omitempty"` // provider or ocr method name
	Warnings  []string           `json:"warnings,omitempty"`
}

// Empty reports whether no field at all was recovered.
func (r ExtractionResult) Empty() bool {
	return r.Sender == "" && r.Address == "" && r.Date == "" &&
		len(r.Items) == 0 && r.ItemsText == "" && r.Total == ""
}

// PageWarning reports a page whose content was lost.
func PageWarning(page int, err error) string {
	return fmt.Sprintf("page %d: %v", page, err)
}

// PagesSkippedWarning reports pages from..to that were never read.
func PagesSkippedWarning(from, to int, reason string) string {
	if from == to {
		return fmt.Sprintf("page %d: %s", from, reason)
	}
	return fmt.Sprintf("pages %d-%d: %s", from, to, reason)
}

// LostContent reports whether warning w says part of the document was not read.
// Such warnings start with "page N:" or "pages N-M:".
func LostContent(w string) bool {
	rest, ok := strings.CutPrefix(w, "page ")
	if !ok {
		rest, ok = strings.CutPrefix(w, "pages ")
	}
	return ok && rest != "" && rest[0] >= '0' && rest[0] <= '9'
}
