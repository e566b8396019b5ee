package llm

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Providers answer with whatever field names the prompt suggested last time; fold the common
// ones into the names the schema uses.
var (
	topSynonyms = map[string][]string{
		"sender":  {"from", "supplier", "vendor", "shipper"},
		"address": {"shipping_address", "delivery_address", "ship_to", "deliver_to", "buyer"},
		"date":    {"delivery_date", "note_date", "dispatch_date"},
		"items":   {"products", "line_items", "goods"},
		"total":   {"total_price", "total_amount", "grand_total"},
	}
	itemSynonyms = map[string][]string{
		"description": {"name", "product", "item", "product_description"},
		"quantity":    {"qty", "count", "units"},
		"unit_price":  {"price", "unit_cost", "rate"},
	}
	scalarFields = []string{"sender", "address", "date", "items_text", "total"}
	// fields the provider must not set on the result
	reserved = []string{"strategy", "method", "warnings"}
)

// SanitizeResponse renames synonym fields, coerces numbers to strings, flattens structured
// addresses, and drops nulls so the document validates against BuildDeliveryNoteSchema.
// It returns the cleaned JSON and the list of fields it touched.
func SanitizeResponse(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}
	var changed []string

	changed = append(changed, renameSynonyms(m, topSynonyms)...)
	for _, k := range reserved {
		if _, ok := m[k]; ok {
			delete(m, k)
			changed = append(changed, k)
		}
	}

	for _, k := range scalarFields {
		v, ok := m[k]
		if !ok {
			continue
		}
		s, ok := flatten(v)
		if !ok || s == "" {
			delete(m, k)
			changed = append(changed, k)
			continue
		}
		if _, isString := v.(string); !isString || s != v {
			changed = append(changed, k)
		}
		m[k] = s
	}

	if v, ok := m["date_order"]; ok {
		s, _ := v.(string)
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "DMY" && s != "MDY" {
			delete(m, "date_order")
			changed = append(changed, "date_order")
		} else {
			m["date_order"] = s
		}
	}

	if v, ok := m["items"]; ok {
		switch t := v.(type) {
		case []any:
			m["items"] = sanitizeItems(t)
		case string:
			// a blob of item text is still useful; the normalizer splits it
			delete(m, "items")
			if strings.TrimSpace(t) != "" {
				if _, exists := m["items_text"]; !exists {
					m["items_text"] = strings.TrimSpace(t)
				}
			}
			changed = append(changed, "items")
		default:
			delete(m, "items")
			changed = append(changed, "items")
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, changed, nil
}

func sanitizeItems(in []any) []any {
	out := make([]any, 0, len(in))
	for _, raw := range in {
		switch it := raw.(type) {
		case string:
			if s := strings.TrimSpace(it); s != "" {
				out = append(out, map[string]any{"description": s})
			}
		case map[string]any:
			renameSynonyms(it, itemSynonyms)
			clean := map[string]any{}
			for _, k := range []string{"description", "quantity", "unit_price"} {
				if s, ok := flatten(it[k]); ok && s != "" {
					clean[k] = s
				}
			}
			if len(clean) == 0 {
				continue
			}
			if _, ok := clean["description"]; !ok {
				clean["description"] = ""
			}
			out = append(out, clean)
		}
	}
	return out
}

func renameSynonyms(m map[string]any, table map[string][]string) []string {
	var changed []string
	for canonical, alts := range table {
		if _, ok := m[canonical]; ok {
			continue
		}
		for _, alt := range alts {
			if v, ok := m[alt]; ok {
				m[canonical] = v
				delete(m, alt)
				changed = append(changed, alt)
				break
			}
		}
	}
	sort.Strings(changed)
	return changed
}

// flatten renders a JSON value as a single string. Objects are joined in key order.
func flatten(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "null") {
			return "", false
		}
		return s, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return "", false
	case []any:
		var parts []string
		for _, e := range t {
			if s, ok := flatten(e); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), true
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			if s, ok := flatten(t[k]); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), true
	}
	return "", false
}
