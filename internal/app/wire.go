// Package app wires configuration into the pipeline's collaborators for the commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/joseph-ayodele/deliverynotes/internal/archive"
	"github.com/joseph-ayodele/deliverynotes/internal/common"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
	"github.com/joseph-ayodele/deliverynotes/internal/extract"
	"github.com/joseph-ayodele/deliverynotes/internal/llm"
	"github.com/joseph-ayodele/deliverynotes/internal/llm/openai"
	"github.com/joseph-ayodele/deliverynotes/internal/llm/vertex"
	"github.com/joseph-ayodele/deliverynotes/internal/ocr"
	"github.com/joseph-ayodele/deliverynotes/internal/repository"
	"github.com/joseph-ayodele/deliverynotes/internal/sink"
	"github.com/joseph-ayodele/deliverynotes/internal/source"
	"github.com/joseph-ayodele/deliverynotes/internal/source/gmail"
)

// Index bundles the fingerprint index and the local record cache. Either may be
// nil when its backend could not be opened.
type Index struct {
	Fingerprints repository.FingerprintIndex
	Cache        repository.RecordCache
	db           *repository.DB
}

func (i *Index) Close() error {
	var errs []error
	if i.Fingerprints != nil {
		errs = append(errs, i.Fingerprints.Close())
	}
	if i.db != nil {
		errs = append(errs, i.db.Close())
	}
	return errors.Join(errs...)
}

// OpenIndex opens the SQLite database and, when a Firestore project is set, uses
// Firestore for fingerprints instead. Failures are logged and leave the field nil
// so the run continues without deduplication.
func OpenIndex(ctx context.Context, cfg *common.Config, logger *slog.Logger) *Index {
	idx := &Index{}
	db, err := repository.Open(ctx, repository.Config{Path: cfg.Index.DBPath}, logger)
	if err != nil {
		logger.Warn("index.sqlite.unavailable", "path", cfg.Index.DBPath, "error", err)
	} else {
		idx.db = db
		idx.Cache = repository.NewRecordCache(db, logger)
		idx.Fingerprints = repository.NewFingerprintIndex(db, logger)
	}

	if cfg.Index.FirestoreProject != "" {
		fs, err := repository.NewFirestoreIndex(ctx, cfg.Index.FirestoreProject, cfg.Index.FirestoreCollection, logger)
		if err != nil {
			logger.Warn("index.firestore.unavailable", "project", cfg.Index.FirestoreProject, "error", err)
			return idx
		}
		if idx.Fingerprints != nil {
			_ = idx.Fingerprints.Close()
		}
		idx.Fingerprints = fs
	}
	return idx
}

// NewOCR builds the text recognizer and reports missing binaries.
func NewOCR(cfg *common.Config, logger *slog.Logger) *ocr.Extractor {
	ext := ocr.NewExtractor(ocr.Config{
		Tesseract:     cfg.OCR.Tesseract,
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
		PSM:           6,

		EnableTSVConfidence: cfg.OCR.TSVConfidence,
	}, logger)
	if err := ext.CheckTools(); err != nil {
		logger.Warn("ocr.tools.missing", "error", err)
	}
	return ext
}

// NewVision builds the configured vision provider. It returns nil when vision is
// disabled or has no credentials; the selector then goes straight to OCR.
func NewVision(ctx context.Context, cfg *common.Config, raster openai.Rasterizer, logger *slog.Logger) (llm.VisionExtractor, func(), error) {
	noop := func() {}
	if cfg.Extraction.ForceOCR {
		return nil, noop, nil
	}
	switch strings.ToLower(cfg.Extraction.Provider) {
	case "vertex":
		c, err := vertex.NewClient(ctx, vertex.Config{
			ProjectID: cfg.Vertex.ProjectID,
			Region:    cfg.Vertex.Region,
			Model:     cfg.Vertex.Model,
		}, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("vertex client: %w", err)
		}
		return c, func() { _ = c.Close() }, nil
	default:
		if cfg.LLM.APIKey == "" {
			logger.Warn("llm.vision.disabled", "reason", "OPENAI_API_KEY not set")
			return nil, noop, nil
		}
		return openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, raster, logger), noop, nil
	}
}

// NewSelector assembles the strategy state machine.
func NewSelector(cfg *common.Config, vision llm.VisionExtractor, text extract.TextRecognizer, logger *slog.Logger) *extract.Selector {
	var vs extract.Strategy
	if vision != nil {
		vs = extract.NewVisionStrategy(vision, cfg.Extraction.VisionRPS, logger)
	}
	return extract.NewSelector(vs, extract.NewTextRecognitionStrategy(text, logger), extract.Config{
		ForceOCR:       cfg.Extraction.ForceOCR,
		AllowFallback:  cfg.Extraction.AllowFallback,
		AttemptTimeout: cfg.Extraction.AttemptTimeout,
	}, logger)
}

// NewSinks returns every configured sink combined. The caller opens it.
func NewSinks(ctx context.Context, out common.OutputConfig, logger *slog.Logger) (sink.Sink, error) {
	var sinks []sink.Sink
	if out.CSVPath != "" {
		sinks = append(sinks, sink.NewCSVSink(out.CSVPath, out.Mode, logger))
	}
	if out.XLSXPath != "" {
		sinks = append(sinks, sink.NewXLSXSink(out.XLSXPath, out.Mode, out.SheetName, logger))
	}
	if out.SheetID != "" {
		s, err := sink.NewSheetsSink(ctx, out.SheetsCredentials, out.SheetID, out.SheetName, out.Mode, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 0 {
		return nil, common.SinkUnavailable("no output configured", nil)
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sink.NewMulti(sinks...), nil
}

// NewArchiver uploads to GCS when a bucket is configured. The returned closer
// releases the storage client.
func NewArchiver(ctx context.Context, cfg common.ArchiveConfig, logger *slog.Logger) (*archive.Archiver, func(), error) {
	acfg := archive.Config{KeepAttachments: cfg.KeepAttachments, Prefix: cfg.Prefix}
	if cfg.Bucket == "" {
		return archive.NewArchiver(nil, acfg, logger), func() {}, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, func() {}, fmt.Errorf("storage client: %w", err)
	}
	logger.Info("archive.gcs.ready", "bucket", cfg.Bucket, "prefix", cfg.Prefix)
	return archive.NewArchiver(archive.NewGCSStore(client, cfg.Bucket), acfg, logger), func() { _ = client.Close() }, nil
}

// NewSource returns the local directory source or the Gmail source. The Gmail
// connection is checked before returning.
func NewSource(ctx context.Context, cfg *common.Config, logger *slog.Logger) (source.Source, error) {
	if cfg.Source.Local {
		return source.NewLocalDir(cfg.Source.LocalDir, logger), nil
	}
	svc, err := gmail.NewService(ctx, cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile)
	if err != nil {
		return nil, common.SourceUnavailable("gmail service", err)
	}
	src := gmail.NewSource(svc, gmail.Config{
		Query:          cfg.Gmail.Query,
		MaxResults:     cfg.Gmail.MaxResults,
		AttachmentsDir: cfg.Gmail.AttachmentsDir,
		Concurrency:    cfg.Gmail.FetchConcurrency,
	}, logger)
	if err := src.CheckConnection(ctx); err != nil {
		return nil, err
	}
	return src, nil
}

// DateOrder maps the configured default to the entity type.
func DateOrder(s string) entity.DateOrder {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(entity.DateOrderDMY):
		return entity.DateOrderDMY
	case string(entity.DateOrderMDY):
		return entity.DateOrderMDY
	default:
		return entity.DateOrderUnknown
	}
}
