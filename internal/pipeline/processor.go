// Package pipeline runs source documents through extraction, normalization and
// the output sinks, recording fingerprints once a sink accepted the record.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/common"
	"github.com/joseph-ayodele/deliverynotes/internal/dedup"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
	"github.com/joseph-ayodele/deliverynotes/internal/extract"
	"github.com/joseph-ayodele/deliverynotes/internal/fingerprint"
	"github.com/joseph-ayodele/deliverynotes/internal/repository"
	"github.com/joseph-ayodele/deliverynotes/internal/sink"
)

// Extractor is satisfied by *extract.Selector.
type Extractor interface {
	Run(ctx context.Context, doc entity.SourceDocument) extract.Outcome
}

// Normalizer is satisfied by *normalize.Normalizer.
type Normalizer interface {
	Normalize(doc entity.SourceDocument, res entity.ExtractionResult) entity.DeliveryRecord
}

// Archiver is satisfied by *archive.Archiver.
type Archiver interface {
	Archive(ctx context.Context, doc entity.SourceDocument) error
}

// Deps are the per-run collaborators. Cache and Archiver are optional.
type Deps struct {
	Dedup      *dedup.Store
	Extractor  Extractor
	Normalizer Normalizer
	Sink       sink.Sink // already opened by the caller
	Cache      repository.RecordCache
	Archiver   Archiver
}

// Result is the outcome of a single document.
type Result struct {
	Name         string
	Fingerprint  string
	Status       constants.DocumentStatus
	FallbackUsed bool
	Record       *entity.DeliveryRecord
	Err          error
}

// Processor coordinates dedup, extraction, normalization and output.
type Processor struct {
	deps   Deps
	logger *slog.Logger
}

func NewProcessor(deps Deps, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{deps: deps, logger: logger}
}

// Run processes docs in order. It stops between documents when ctx is done and
// returns the summary so far together with ctx.Err().
func (p *Processor) Run(ctx context.Context, docs []entity.SourceDocument) (Summary, error) {
	if common.RunIDFromContext(ctx) == "" {
		ctx = common.WithRunID(ctx, uuid.NewString())
	}
	start := time.Now()
	p.logger.Info("processor.run.start", "run_id", common.RunIDFromContext(ctx), "documents", len(docs))

	var sum Summary
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			sum.Aborted = true
			p.logger.Warn("processor.run.cancelled", "run_id", common.RunIDFromContext(ctx), "remaining", len(docs)-sum.Total())
			return sum, err
		}
		res := p.ProcessOne(ctx, doc)
		if res.Err != nil && ctx.Err() != nil && res.Status == constants.StatusFailed {
			// cancelled mid-extraction: the document is retried next run
			sum.Aborted = true
			return sum, ctx.Err()
		}
		sum.Add(res)
	}

	p.logger.Info("processor.run.done",
		"run_id", common.RunIDFromContext(ctx),
		"processed", sum.Processed,
		"skipped", sum.Skipped,
		"fallback_used", sum.FallbackUsed,
		"incomplete", sum.Incomplete,
		"failed", sum.Failed,
		"sink_failed", sum.SinkFailed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return sum, nil
}

// ProcessOne runs a single document through the pipeline. Watch mode calls it
// directly for every settled file.
func (p *Processor) ProcessOne(ctx context.Context, doc entity.SourceDocument) Result {
	if doc.Fingerprint == "" {
		doc.Fingerprint = fingerprint.Of(doc.Data)
	}
	ctx = common.WithFingerprint(ctx, doc.Fingerprint)
	out := Result{Name: doc.Name, Fingerprint: doc.Fingerprint}

	if p.deps.Dedup.Has(ctx, doc.Fingerprint) {
		p.logger.Info("pipeline.document.skipped", "name", doc.Name, "fingerprint", doc.Fingerprint, "reason", "duplicate")
		out.Status = constants.StatusSkipped
		return out
	}

	start := time.Now()
	oc := p.deps.Extractor.Run(ctx, doc)
	out.FallbackUsed = oc.FallbackUsed
	if oc.State != extract.StateDone {
		out.Status, out.Err = constants.StatusFailed, oc.Err()
		p.logger.Error("pipeline.document.failed",
			"name", doc.Name,
			"fingerprint", doc.Fingerprint,
			"attempts", len(oc.Attempts),
			"error", out.Err,
		)
		return out
	}

	rec := p.deps.Normalizer.Normalize(doc, oc.Result)
	out.Record = &rec

	// Past this point the document is committed: finish even if ctx is cancelled.
	wctx := context.WithoutCancel(ctx)
	if p.deps.Cache != nil {
		if err := p.deps.Cache.Put(wctx, rec); err != nil {
			p.logger.Warn("pipeline.cache.put_failed", "fingerprint", doc.Fingerprint, "error", err)
		}
	}

	if err := p.deps.Sink.Write(wctx, []entity.DeliveryRecord{rec}); err != nil {
		out.Status, out.Err = constants.StatusSinkFailed, err
		p.logger.Error("pipeline.sink.write_failed",
			"name", doc.Name,
			"fingerprint", doc.Fingerprint,
			"sink", p.deps.Sink.Name(),
			"error", err,
		)
		return out
	}

	// A failed index write is logged by the store; the row is already durable.
	_ = p.deps.Dedup.Record(wctx, doc.Fingerprint, dedup.Meta{SourceName: doc.Name, Strategy: string(rec.SourceStrategy)})

	if p.deps.Archiver != nil {
		if err := p.deps.Archiver.Archive(wctx, doc); err != nil {
			p.logger.Warn("pipeline.archive.failed", "name", doc.Name, "fingerprint", doc.Fingerprint, "error", err)
		}
	}

	out.Status = constants.StatusProcessed
	p.logger.Info("pipeline.document.processed",
		"name", doc.Name,
		"fingerprint", doc.Fingerprint,
		"strategy", rec.SourceStrategy,
		"fallback_used", oc.FallbackUsed,
		"incomplete", rec.Incomplete,
		"issues", len(rec.Issues),
		"items", len(rec.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}
