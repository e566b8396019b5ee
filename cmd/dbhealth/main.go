package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joseph-ayodele/deliverynotes/internal/common"
	repo "github.com/joseph-ayodele/deliverynotes/internal/repository"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	dbPath := flag.String("db", "", "index database (defaults to index.db_path)")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *dbPath != "" {
		cfg.Index.DBPath = *dbPath
	}
	if _, err := os.Stat(cfg.Index.DBPath); err != nil {
		log.Printf("ERROR: index database %q not found", cfg.Index.DBPath)
		log.Println("  run deliverynotes once, or pass -db /path/to/deliverynotes.db")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := repo.Open(ctx, repo.Config{Path: cfg.Index.DBPath}, nil)
	if err != nil {
		log.Fatalf("opening index: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("ERROR: closing index: %v", err)
		}
	}()

	if err := db.HealthCheck(ctx, 1*time.Second); err != nil {
		log.Fatalf("index health: FAIL (%v)", err)
	}
	log.Println("index health: OK")

	recs, err := repo.NewRecordCache(db, nil).List(ctx)
	if err != nil {
		log.Fatalf("listing cached records: %v", err)
	}
	incomplete := 0
	for _, r := range recs {
		if r.Incomplete {
			incomplete++
		}
	}
	log.Printf("cached records: %d (incomplete: %d)", len(recs), incomplete)
	for _, r := range recs {
		log.Printf("- [%s] %s %s %s", r.Fingerprint[:min(12, len(r.Fingerprint))], r.DateString(), r.Sender, r.SourceStrategy)
	}
}
