package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/deliverynotes/internal/app"
	"github.com/joseph-ayodele/deliverynotes/internal/common"
	"github.com/joseph-ayodele/deliverynotes/internal/extract"
	"github.com/joseph-ayodele/deliverynotes/internal/normalize"
	"github.com/joseph-ayodele/deliverynotes/internal/source"
)

// runocr runs the text-recognition strategy on one file and prints the
// normalized record. Nothing is written to the index or the sinks.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <file.pdf|png|jpg>")
		os.Exit(2)
	}
	doc, err := source.LoadFile(os.Args[1])
	if err != nil {
		logger.Error("read file", "path", os.Args[1], "error", err)
		os.Exit(2)
	}

	cfg, err := common.LoadConfig("")
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	strategy := extract.NewTextRecognitionStrategy(app.NewOCR(cfg, logger), logger)

	start := time.Now()
	res, err := strategy.Extract(ctx, doc)
	dur := time.Since(start)
	if err != nil {
		logger.Error("text recognition failed", "name", doc.Name, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}
	logger.Info("text recognition OK",
		"name", doc.Name,
		"method", res.Method,
		"items", len(res.Items),
		"warnings", len(res.Warnings),
		"duration_ms", dur.Milliseconds(),
	)

	rec := normalize.NewNormalizer(normalize.Config{DefaultDateOrder: app.DateOrder(cfg.Extraction.DateOrder)}, logger).Normalize(doc, res)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		logger.Error("encode", "error", err)
		os.Exit(1)
	}
}
