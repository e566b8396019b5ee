package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/deliverynotes/constants"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit

	TessdataDir         string
	EnableTSVConfidence bool

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	// MinTextLayerChars is the shortest pdftotext output accepted before
	// falling back to rasterize+tesseract. Default 40.
	MinTextLayerChars int
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	return NewExtractorWithRunner(cfg, execRunner{}, logger)
}

// NewExtractorWithRunner lets tests substitute the external command runner.
func NewExtractorWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinTextLayerChars <= 0 {
		cfg.MinTextLayerChars = 40
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// Extract picks a strategy based on file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting ocr extraction", "path", path, "method", "auto", "ext", ext)
	switch constants.FormatForMIME(constants.MIMEForName(path)) {
	case constants.PDF:
		res, err := e.extractPDF(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	case constants.IMAGE:
		res, err := e.extractImage(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	default:
		e.logger.Error("unsupported ocr extension", "extension", ext)
		return ExtractionResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}
}

// ExtractBytes runs Extract on in-memory content, spilling it to a temp file
// when the document has no on-disk path.
func (e *Extractor) ExtractBytes(ctx context.Context, name, path string, data []byte) (ExtractionResult, error) {
	if path != "" {
		return e.Extract(ctx, path)
	}
	tmp, cleanup, err := spill(name, data)
	if err != nil {
		return ExtractionResult{}, err
	}
	defer cleanup()
	return e.Extract(ctx, tmp)
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	txt, pages, warn, err := e.pdfToText(ctx, path)
	if err == nil && len(strings.TrimSpace(txt)) >= e.cfg.MinTextLayerChars {
		txt = Normalize(txt)
		return ExtractionResult{
			Text:       txt,
			Pages:      pages,
			SourceType: constants.PDF,
			Method:     "pdf-text",
			Warnings:   warn,
			Confidence: heuristicConfidence(txt),
		}, nil
	}
	if err != nil {
		e.logger.Warn("pdftotext failed, rasterizing", "path", path, "error", err)
	} else {
		e.logger.Debug("pdf has no usable text layer, rasterizing", "path", path, "chars", len(strings.TrimSpace(txt)))
	}

	txt, pages, warn2, err := e.pdfToOCR(ctx, path)
	warn = append(warn, warn2...)
	if err != nil {
		return ExtractionResult{SourceType: constants.PDF, Warnings: warn}, err
	}
	txt = Normalize(txt)
	return ExtractionResult{
		Text:       txt,
		Pages:      pages,
		SourceType: constants.PDF,
		Method:     "pdf-ocr",
		Language:   e.cfg.TesseractLang,
		Warnings:   warn,
		Confidence: heuristicConfidence(txt),
	}, nil
}
