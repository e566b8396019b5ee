package llm

// BuildDeliveryNoteSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// We pass this to the provider as a formatting constraint and also use it locally to validate
// after SanitizeResponse has folded synonyms into canonical names.
func BuildDeliveryNoteSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": map[string]any{"type": "string"},
			"quantity":    map[string]any{"type": "string"},
			"unit_price":  map[string]any{"type": "string"},
		},
		"required": []string{"description"},
	}
	props := map[string]any{
		"sender":     map[string]any{"type": "string"},
		"address":    map[string]any{"type": "string"},
		"date":       map[string]any{"type": "string"},
		"items":      map[string]any{"type": "array", "items": item},
		"items_text": map[string]any{"type": "string"},
		"total":      map[string]any{"type": "string"},
		"date_order": map[string]any{"type": "string", "enum": []string{"", "DMY", "MDY"}},
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		// at least one recognisable field, otherwise the response is treated as empty
		"anyOf": []any{
			map[string]any{"required": []string{"sender"}},
			map[string]any{"required": []string{"address"}},
			map[string]any{"required": []string{"date"}},
			map[string]any{"required": []string{"items"}},
			map[string]any{"required": []string{"items_text"}},
			map[string]any{"required": []string{"total"}},
		},
	}
}
