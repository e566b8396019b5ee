package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joseph-ayodele/deliverynotes/internal/app"
	"github.com/joseph-ayodele/deliverynotes/internal/common"
	"github.com/joseph-ayodele/deliverynotes/internal/llm"
	"github.com/joseph-ayodele/deliverynotes/internal/source"
)

// llm sends the same document to the configured vision provider several times
// to compare responses. Nothing is written to the index or the sinks.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: llm <file> [times]")
		os.Exit(2)
	}
	doc, err := source.LoadFile(os.Args[1])
	if err != nil {
		logger.Error("read file", "path", os.Args[1], "error", err)
		os.Exit(2)
	}
	times := 3
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}

	cfg, err := common.LoadConfig(os.Getenv("DN_CONFIG"))
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(2)
	}
	cfg.Extraction.ForceOCR = false

	ctx := context.Background()
	vision, closeVision, err := app.NewVision(ctx, cfg, app.NewOCR(cfg, logger), logger)
	if err != nil {
		logger.Error("vision provider", "error", err)
		os.Exit(1)
	}
	defer closeVision()
	if vision == nil {
		logger.Error("no vision provider configured", "provider", cfg.Extraction.Provider)
		os.Exit(2)
	}

	req := llm.VisionRequest{
		Name:     doc.Name,
		Path:     doc.Path,
		MIMEType: doc.MIMEType,
		Data:     doc.Data,
	}
	for i := 1; i <= times; i++ {
		runCtx, cancelRun := context.WithTimeout(ctx, cfg.Extraction.AttemptTimeout)
		start := time.Now()
		logger.Info("llm.run.start", "iter", i, "name", doc.Name, "provider", vision.Name())

		res, raw, err := vision.ExtractDocument(runCtx, req)
		cancelRun()

		if err != nil {
			logger.Error("llm.run.error", "iter", i, "kind", llm.KindOf(err), "err", err)
		} else {
			logger.Info("llm.run.ok",
				"iter", i,
				"sender", res.Sender,
				"date", res.Date,
				"items", len(res.Items),
				"raw", string(raw),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		}

		time.Sleep(750 * time.Millisecond)
	}

	logger.Info("done", "name", doc.Name, "times", times)
}
