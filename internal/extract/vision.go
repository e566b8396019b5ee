package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/common"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
	"github.com/joseph-ayodele/deliverynotes/internal/llm"
	"github.com/joseph-ayodele/deliverynotes/internal/ocr"
)

// VisionStrategy sends the document to a vision-capable provider.
type VisionStrategy struct {
	vision  llm.VisionExtractor
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewVisionStrategy wraps v. rps <= 0 disables rate limiting.
func NewVisionStrategy(v llm.VisionExtractor, rps float64, logger *slog.Logger) *VisionStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	var lim *rate.Limiter
	if rps > 0 {
		lim = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &VisionStrategy{vision: v, limiter: lim, logger: logger}
}

func (s *VisionStrategy) Name() constants.Strategy { return constants.StrategyVision }

func (s *VisionStrategy) Extract(ctx context.Context, doc entity.SourceDocument) (entity.ExtractionResult, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return entity.ExtractionResult{}, fmt.Errorf("vision rate limit: %w", err)
		}
	}

	mimeType := doc.MIMEType
	if mimeType == "" {
		mimeType = constants.MIMEForName(doc.Name)
	}
	var unread string
	if constants.FormatForMIME(mimeType) == constants.PDF {
		unread = s.unreadPages(ctx, doc)
	}

	req := llm.VisionRequest{
		Name:       doc.Name,
		Path:       doc.Path,
		MIMEType:   mimeType,
		Data:       doc.Data,
		SenderHint: doc.Meta.Sender,
	}
	if !doc.Meta.Date.IsZero() {
		req.DateHint = doc.Meta.Date.Format(time.RFC1123Z)
	}

	res, _, err := s.vision.ExtractDocument(ctx, req)
	if err != nil {
		return entity.ExtractionResult{}, err
	}
	res.Strategy = constants.StrategyVision
	if unread != "" {
		res.Warnings = append(res.Warnings, unread)
	}
	return res, nil
}

// unreadPages returns a warning when the PDF has more pages than the provider reads.
func (s *VisionStrategy) unreadPages(ctx context.Context, doc entity.SourceDocument) string {
	info, err := ocr.InspectPDF(doc.Data)
	if err != nil {
		s.logger.Warn("extract.vision.pdf_inspect_failed",
			"name", doc.Name,
			"fingerprint", common.FingerprintFromContext(ctx),
			"error", err,
		)
		return ""
	}
	pl, ok := s.vision.(llm.PageLimited)
	if !ok || pl.MaxPDFPages() <= 0 || info.Pages <= pl.MaxPDFPages() {
		return ""
	}
	limit := pl.MaxPDFPages()
	s.logger.Warn("extract.vision.pages_unread",
		"name", doc.Name,
		"fingerprint", common.FingerprintFromContext(ctx),
		"provider", s.vision.Name(),
		"pages", info.Pages,
		"read", limit,
	)
	return entity.PagesSkippedWarning(limit+1, info.Pages, "not sent to "+s.vision.Name())
}
