package repository

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "index.db")}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestFingerprintIndex_RecordAndHas(t *testing.T) {
	ctx := context.Background()
	idx := NewFingerprintIndex(openTestDB(t), nil)

	has, err := idx.Has(ctx, "abc")
	if err != nil || has {
		t.Fatalf("Has before Record = %v, %v", has, err)
	}

	inserted, err := idx.Record(ctx, IndexEntry{Fingerprint: "abc", SourceName: "note.pdf", Strategy: "vision"})
	if err != nil || !inserted {
		t.Fatalf("first Record = %v, %v", inserted, err)
	}
	inserted, err = idx.Record(ctx, IndexEntry{Fingerprint: "abc", SourceName: "renamed.pdf"})
	if err != nil || inserted {
		t.Fatalf("second Record = %v, %v; want false, nil", inserted, err)
	}

	has, err = idx.Has(ctx, "abc")
	if err != nil || !has {
		t.Fatalf("Has after Record = %v, %v", has, err)
	}
}

func TestFingerprintIndex_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "index.db")

	db, err := Open(ctx, Config{Path: path}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewFingerprintIndex(db, nil).Record(ctx, IndexEntry{Fingerprint: "f1"}); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	db, err = Open(ctx, Config{Path: path}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	has, err := NewFingerprintIndex(db, nil).Has(ctx, "f1")
	if err != nil || !has {
		t.Fatalf("Has after reopen = %v, %v", has, err)
	}
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	if err := os.WriteFile(path, bytes.Repeat([]byte("not an sqlite database "), 64), 0o644); err != nil {
		t.Fatal(err)
	}
	if db, err := Open(context.Background(), Config{Path: path}, nil); err == nil {
		_ = db.Close()
		t.Fatal("expected error opening a corrupt index")
	}
}

func TestRecordCache_PutGetList(t *testing.T) {
	ctx := context.Background()
	cache := NewRecordCache(openTestDB(t), nil)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r1 := entity.DeliveryRecord{
		Fingerprint:    "f1",
		SourceName:     "a.pdf",
		Sender:         "ACME Ltd",
		Items:          []entity.LineItem{{Description: "Bolts", Quantity: 10, QuantityValid: true}},
		SourceStrategy: constants.StrategyVision,
		ProcessedAt:    base,
	}
	r2 := entity.DeliveryRecord{
		Fingerprint:    "f2",
		SourceName:     "b.png",
		Incomplete:     true,
		SourceStrategy: constants.StrategyTextRecognition,
		ProcessedAt:    base.Add(time.Minute),
	}
	for _, r := range []entity.DeliveryRecord{r2, r1} {
		if err := cache.Put(ctx, r); err != nil {
			t.Fatalf("Put(%s): %v", r.Fingerprint, err)
		}
	}

	got, err := cache.Get(ctx, "f1")
	if err != nil || got == nil {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if got.Sender != "ACME Ltd" || len(got.Items) != 1 || got.Items[0].Quantity != 10 {
		t.Fatalf("unexpected record: %+v", got)
	}

	missing, err := cache.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("Get(missing) = %v, %v", missing, err)
	}

	all, err := cache.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Fingerprint != "f1" || all[1].Fingerprint != "f2" {
		t.Fatalf("List order = %+v", all)
	}

	// Put replaces on the same fingerprint.
	r1.Sender = "ACME Limited"
	if err := cache.Put(ctx, r1); err != nil {
		t.Fatal(err)
	}
	got, _ = cache.Get(ctx, "f1")
	if got.Sender != "ACME Limited" {
		t.Fatalf("Put did not replace: %q", got.Sender)
	}
}
