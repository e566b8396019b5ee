package llm

import (
	"context"

	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

// VisionRequest is one document handed to a vision-capable provider.
type VisionRequest struct {
	Name     string
	Path     string // optional on-disk copy
	MIMEType string
	Data     []byte

	// Hints carried from the mail envelope; never required.
	SenderHint string
	DateHint   string
}

// VisionExtractor is the interface the extraction selector depends on.
// Implementations return the decoded fields plus the raw JSON the provider produced.
type VisionExtractor interface {
	ExtractDocument(ctx context.Context, req VisionRequest) (entity.ExtractionResult, []byte /*rawJSON*/, error)
	Name() string
}

// PageLimited is implemented by providers that only read the first pages of a
// PDF. MaxPDFPages returns that count.
type PageLimited interface {
	MaxPDFPages() int
}
