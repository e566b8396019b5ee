package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

// LocateJSON returns the outermost JSON object in s. Providers sometimes wrap it in
// prose or a fenced code block.
func LocateJSON(s string) ([]byte, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	raw := []byte(s[start : end+1])
	if !json.Valid(raw) {
		return nil, false
	}
	return raw, true
}

// DecodeResult turns provider output into an ExtractionResult: locate, sanitize, validate,
// unmarshal. Errors are ProviderErrors of kind malformed or empty. The cleaned JSON is
// returned even on validation failure, for logging.
func DecodeResult(provider, content string) (entity.ExtractionResult, []byte, error) {
	if strings.TrimSpace(content) == "" {
		return entity.ExtractionResult{}, nil, &ProviderError{Provider: provider, Kind: KindEmpty, Err: errors.New("empty response")}
	}
	raw, ok := LocateJSON(content)
	if !ok {
		return entity.ExtractionResult{}, nil, &ProviderError{Provider: provider, Kind: KindMalformed, Err: errors.New("no json object in response")}
	}
	cleaned, _, err := SanitizeResponse(raw)
	if err != nil {
		return entity.ExtractionResult{}, raw, &ProviderError{Provider: provider, Kind: KindMalformed, Err: fmt.Errorf("sanitize: %w", err)}
	}
	if err := ValidateJSONAgainstSchema(BuildDeliveryNoteSchema(), cleaned); err != nil {
		kind := KindMalformed
		if string(cleaned) == "{}" {
			kind = KindEmpty
		}
		return entity.ExtractionResult{}, cleaned, &ProviderError{Provider: provider, Kind: kind, Err: err}
	}

	var out entity.ExtractionResult
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return entity.ExtractionResult{}, cleaned, &ProviderError{Provider: provider, Kind: KindMalformed, Err: fmt.Errorf("unmarshal fields: %w", err)}
	}
	if out.Empty() {
		return entity.ExtractionResult{}, cleaned, &ProviderError{Provider: provider, Kind: KindEmpty, Err: errors.New("no fields recovered")}
	}
	out.DateOrder = entity.DateOrder(strings.ToUpper(string(out.DateOrder)))
	return out, cleaned, nil
}
