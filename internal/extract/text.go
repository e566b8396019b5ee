package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
	"github.com/joseph-ayodele/deliverynotes/internal/textparse"
)

// ErrNoText is returned when recognition produced no usable text.
var ErrNoText = errors.New("no text recognized")

// TextRecognitionStrategy runs OCR and pattern-based field extraction over the text.
type TextRecognitionStrategy struct {
	ocr    TextRecognizer
	logger *slog.Logger
}

func NewTextRecognitionStrategy(r TextRecognizer, logger *slog.Logger) *TextRecognitionStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextRecognitionStrategy{ocr: r, logger: logger}
}

func (s *TextRecognitionStrategy) Name() constants.Strategy {
	return constants.StrategyTextRecognition
}

func (s *TextRecognitionStrategy) Extract(ctx context.Context, doc entity.SourceDocument) (entity.ExtractionResult, error) {
	r, err := s.ocr.ExtractBytes(ctx, doc.Name, doc.Path, doc.Data)
	if err != nil {
		return entity.ExtractionResult{}, fmt.Errorf("text recognition: %w", err)
	}
	if strings.TrimSpace(r.Text) == "" {
		return entity.ExtractionResult{}, ErrNoText
	}

	res := textparse.Parse(r.Text)
	res.Strategy = constants.StrategyTextRecognition
	res.Method = r.Method
	res.Warnings = append(res.Warnings, r.Warnings...)

	s.logger.Debug("extract.text.parsed",
		"name", doc.Name,
		"method", r.Method,
		"pages", r.Pages,
		"confidence", r.Confidence,
		"items", len(res.Items),
		"has_sender", res.Sender != "",
		"has_address", res.Address != "",
		"has_date", res.Date != "",
	)
	return res, nil
}
