// Package sink writes normalized delivery records to tabular destinations.
package sink

import (
	"context"
	"strconv"

	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

// Header is the fixed column order of every sink.
var Header = []string{
	"sender",
	"address",
	"date",
	"item_description",
	"quantity",
	"unit_price",
	"incomplete",
	"source_strategy",
}

// Sink accepts batches of records. A Write that returns nil means the batch is durable.
type Sink interface {
	Name() string
	Open(ctx context.Context) error
	Write(ctx context.Context, recs []entity.DeliveryRecord) error
	Close() error
}

// Rows flattens records to one row per line item. A record without items
// produces a single row carrying only its metadata.
func Rows(recs []entity.DeliveryRecord) [][]string {
	var out [][]string
	for _, r := range recs {
		base := []string{r.Sender, r.Address, r.DateString()}
		tail := []string{strconv.FormatBool(r.Incomplete), string(r.SourceStrategy)}
		if len(r.Items) == 0 {
			out = append(out, concat(base, []string{"", "", ""}, tail))
			continue
		}
		for _, it := range r.Items {
			out = append(out, concat(base, []string{
				it.Description,
				formatQuantity(it),
				formatPrice(it),
			}, tail))
		}
	}
	return out
}

// invalid numbers render as empty cells, never as 0
func formatQuantity(it entity.LineItem) string {
	if !it.QuantityValid {
		return ""
	}
	return strconv.FormatFloat(it.Quantity, 'f', -1, 64)
}

func formatPrice(it entity.LineItem) string {
	if !it.UnitPriceValid {
		return ""
	}
	return strconv.FormatFloat(it.UnitPrice, 'f', 2, 64)
}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func toAny(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
