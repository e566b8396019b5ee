package llm

import (
	"encoding/base64"

	"github.com/joseph-ayodele/deliverynotes/constants"
)

// DataURL encodes data for inline image content parts.
func DataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// FitsVisionLimit reports whether a payload is small enough to send inline.
func FitsVisionLimit(data []byte) bool {
	return len(data) <= constants.MaxVisionMBDefault*1024*1024
}
