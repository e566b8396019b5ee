// Command resink rewrites the configured outputs from the local record cache
// without extracting anything again.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/app"
	"github.com/joseph-ayodele/deliverynotes/internal/common"
	"github.com/joseph-ayodele/deliverynotes/internal/repository"
)

const batchSize = 200

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		dbPath     = flag.String("db", "", "index database (defaults to index.db_path)")
		outputCSV  = flag.String("output-csv", "", "CSV output path")
		outputXLSX = flag.String("output-xlsx", "", "XLSX output path")
		sheetID    = flag.String("sheet-id", "", "Google Sheets spreadsheet ID")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Index.DBPath = *dbPath
	}
	if *outputCSV != "" || *outputXLSX != "" || *sheetID != "" {
		cfg.Output.CSVPath, cfg.Output.XLSXPath, cfg.Output.SheetID = *outputCSV, *outputXLSX, *sheetID
	}
	cfg.Output.Mode = constants.ModeOverwrite

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := resink(ctx, cfg, logger); err != nil {
		logger.Error("resink.failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func resink(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	db, err := repository.Open(ctx, repository.Config{Path: cfg.Index.DBPath}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	recs, err := repository.NewRecordCache(db, logger).List(ctx)
	if err != nil {
		return fmt.Errorf("list cached records: %w", err)
	}

	out, err := app.NewSinks(ctx, cfg.Output, logger)
	if err != nil {
		return err
	}
	if err := out.Open(ctx); err != nil {
		return err
	}
	for start := 0; start < len(recs); start += batchSize {
		end := min(start+batchSize, len(recs))
		if err := out.Write(ctx, recs[start:end]); err != nil {
			_ = out.Close()
			return fmt.Errorf("write records %d-%d: %w", start, end, err)
		}
	}
	if err := out.Close(); err != nil {
		return err
	}
	logger.Info("resink.done", "records", len(recs), "sink", out.Name())
	return nil
}
