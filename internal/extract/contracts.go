package extract

import (
	"context"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
	"github.com/joseph-ayodele/deliverynotes/internal/ocr"
)

// Strategy turns document bytes into an ExtractionResult. Vision and text
// recognition produce the same shape; only provenance differs.
type Strategy interface {
	Name() constants.Strategy
	Extract(ctx context.Context, doc entity.SourceDocument) (entity.ExtractionResult, error)
}

// TextRecognizer is the OCR stage: document -> text.
type TextRecognizer interface {
	ExtractBytes(ctx context.Context, name, path string, data []byte) (ocr.ExtractionResult, error)
}
