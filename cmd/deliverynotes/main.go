package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/deliverynotes/internal/app"
	"github.com/joseph-ayodele/deliverynotes/internal/async"
	"github.com/joseph-ayodele/deliverynotes/internal/common"
	"github.com/joseph-ayodele/deliverynotes/internal/dedup"
	"github.com/joseph-ayodele/deliverynotes/internal/normalize"
	"github.com/joseph-ayodele/deliverynotes/internal/pipeline"
	"github.com/joseph-ayodele/deliverynotes/internal/source"
	"github.com/joseph-ayodele/deliverynotes/internal/source/gmail"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", "", "YAML config file")
		local       = flag.Bool("local", false, "read documents from a local directory instead of Gmail")
		localDir    = flag.String("local-dir", "", "local directory to scan")
		useOCR      = flag.Bool("use-ocr", false, "skip vision extraction and use text recognition only")
		noFallback  = flag.Bool("no-fallback", false, "do not fall back to text recognition when vision fails")
		outputCSV   = flag.String("output-csv", "", "CSV output path")
		outputXLSX  = flag.String("output-xlsx", "", "XLSX output path")
		sheetID     = flag.String("sheet-id", "", "Google Sheets spreadsheet ID")
		mode        = flag.String("mode", "", "append | overwrite")
		watch       = flag.Bool("watch", false, "keep running and process files as they appear (local only)")
		searchQuery = flag.String("search-query", "", "Gmail search query")
		gmailCreds  = flag.String("gmail-credentials", "", "Gmail OAuth client credentials file")
		sheetsCreds = flag.String("sheets-credentials", "", "service account credentials for Google Sheets")
		gmailAuth   = flag.Bool("gmail-auth", false, "run the Gmail OAuth consent flow and exit")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		printError("Error: %v\n", err)
		return pipeline.ExitAborted
	}

	// flags override config only when given
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "local":
			cfg.Source.Local = *local
		case "local-dir":
			cfg.Source.LocalDir = *localDir
		case "use-ocr":
			cfg.Extraction.ForceOCR = *useOCR
		case "no-fallback":
			cfg.Extraction.AllowFallback = !*noFallback
		case "output-csv":
			cfg.Output.CSVPath = *outputCSV
		case "output-xlsx":
			cfg.Output.XLSXPath = *outputXLSX
		case "sheet-id":
			cfg.Output.SheetID = *sheetID
		case "mode":
			cfg.Output.Mode = *mode
		case "watch":
			cfg.Source.Watch = *watch
		case "search-query":
			cfg.Gmail.Query = *searchQuery
		case "gmail-credentials":
			cfg.Gmail.CredentialsFile = *gmailCreds
		case "sheets-credentials":
			cfg.Output.SheetsCredentials = *sheetsCreds
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *gmailAuth {
		if err := gmail.Authorize(ctx, cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile, os.Stdin, os.Stdout); err != nil {
			printError("Error: %v\n", err)
			return pipeline.ExitAborted
		}
		return pipeline.ExitOK
	}

	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		return pipeline.ExitAborted
	}
	ctx = common.WithRunID(ctx, uuid.NewString())
	logger = logger.With("run_id", common.RunIDFromContext(ctx))
	logger.Info("deliverynotes.start", "config", cfg.String())

	src, err := app.NewSource(ctx, cfg, logger)
	if err != nil {
		logger.Error("deliverynotes.source.unavailable", "error", err)
		return pipeline.ExitAborted
	}

	idx := app.OpenIndex(ctx, cfg, logger)
	defer idx.Close()

	ocrExt := app.NewOCR(cfg, logger)
	vision, closeVision, err := app.NewVision(ctx, cfg, ocrExt, logger)
	if err != nil {
		logger.Error("deliverynotes.vision.init_failed", "error", err)
		return pipeline.ExitAborted
	}
	defer closeVision()

	out, err := app.NewSinks(ctx, cfg.Output, logger)
	if err == nil {
		err = out.Open(ctx)
	}
	if err != nil {
		logger.Error("deliverynotes.sink.unavailable", "error", err)
		return pipeline.ExitAborted
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Error("deliverynotes.sink.close_failed", "error", err)
		}
	}()

	archiver, closeArchive, err := app.NewArchiver(ctx, cfg.Archive, logger)
	if err != nil {
		logger.Error("deliverynotes.archive.init_failed", "error", err)
		return pipeline.ExitAborted
	}
	defer closeArchive()

	store := dedup.NewStore(idx.Fingerprints, logger)
	proc := pipeline.NewProcessor(pipeline.Deps{
		Dedup:      store,
		Extractor:  app.NewSelector(cfg, vision, ocrExt, logger),
		Normalizer: normalize.NewNormalizer(normalize.Config{DefaultDateOrder: app.DateOrder(cfg.Extraction.DateOrder)}, logger),
		Sink:       out,
		Cache:      idx.Cache,
		Archiver:   archiver,
	}, logger)

	var sum pipeline.Summary
	if cfg.Source.Watch {
		sum = watchLoop(ctx, cfg, proc, logger)
	} else {
		docs, err := src.List(ctx)
		if err != nil {
			logger.Error("deliverynotes.source.list_failed", "source", src.Name(), "error", err)
			return pipeline.ExitAborted
		}
		sum, err = proc.Run(ctx, docs)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("deliverynotes.run.failed", "error", err)
		}
	}

	if store.Degraded() {
		logger.Warn("deliverynotes.index.degraded", "effect", "some fingerprints may not have been recorded")
	}
	logger.Info("deliverynotes.summary",
		"processed", sum.Processed,
		"skipped", sum.Skipped,
		"fallback_used", sum.FallbackUsed,
		"incomplete", sum.Incomplete,
		"failed", sum.Failed,
		"sink_failed", sum.SinkFailed,
		"exit_code", sum.ExitCode(),
	)
	fmt.Println(sum.String())
	return sum.ExitCode()
}

// watchLoop queues files under the local directory as they settle, until the
// context is cancelled. A signal is the normal way out, so it is not an abort.
func watchLoop(ctx context.Context, cfg *common.Config, proc *pipeline.Processor, logger *slog.Logger) pipeline.Summary {
	paths, errs, err := source.StartWatcher(ctx, source.WatchConfig{
		Roots:       []string{cfg.Source.LocalDir},
		InitialScan: true,
		Debounce:    cfg.Source.WatchDebounce,
	}, logger)
	if err != nil {
		logger.Error("deliverynotes.watch.start_failed", "error", err)
		return pipeline.Summary{Aborted: true}
	}
	q := async.NewProcessorQueue(ctx, proc, logger)
	logger.Info("deliverynotes.watch.started", "dir", cfg.Source.LocalDir)

loop:
	for {
		select {
		case <-ctx.Done():
			logger.Info("deliverynotes.watch.stopped")
			break loop
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("deliverynotes.watch.error", "error", err)
		case p, ok := <-paths:
			if !ok {
				break loop
			}
			if err := q.Enqueue(ctx, async.Job{Path: p}); err != nil {
				break loop
			}
		}
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	q.Shutdown(sctx)
	return q.Summary()
}
