package dedup

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/joseph-ayodele/deliverynotes/internal/repository"
)

type fakeIndex struct {
	set      map[string]bool
	readErr  error
	writeErr error
	writes   int
}

func newFakeIndex() *fakeIndex { return &fakeIndex{set: map[string]bool{}} }

func (f *fakeIndex) Has(_ context.Context, fp string) (bool, error) {
	if f.readErr != nil {
		return false, f.readErr
	}
	return f.set[fp], nil
}

func (f *fakeIndex) Record(_ context.Context, e repository.IndexEntry) (bool, error) {
	f.writes++
	if f.writeErr != nil {
		return false, f.writeErr
	}
	if f.set[e.Fingerprint] {
		return false, nil
	}
	f.set[e.Fingerprint] = true
	return true, nil
}

func (f *fakeIndex) Close() error { return nil }

func TestStore_RecordThenHas(t *testing.T) {
	ctx := context.Background()
	idx := newFakeIndex()
	s := NewStore(idx, nil)

	if s.Has(ctx, "fp1") {
		t.Fatal("fresh store reports fp1 as seen")
	}
	if err := s.Record(ctx, "fp1", Meta{SourceName: "a.pdf"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !s.Has(ctx, "fp1") {
		t.Fatal("fp1 not seen after Record")
	}
	if !idx.set["fp1"] {
		t.Fatal("fp1 not persisted to index")
	}
	if s.Degraded() {
		t.Fatal("store should not be degraded")
	}
}

func TestStore_ReadFailureDegrades(t *testing.T) {
	ctx := context.Background()
	idx := newFakeIndex()
	idx.set["fp1"] = true
	idx.readErr = errors.New("disk on fire")
	s := NewStore(idx, nil)

	if s.Has(ctx, "fp1") {
		t.Fatal("unreadable index must be treated as empty")
	}
	if !s.Degraded() {
		t.Fatal("expected degraded after read failure")
	}
}

func TestStore_WriteFailureKeepsInRunSet(t *testing.T) {
	ctx := context.Background()
	idx := newFakeIndex()
	idx.writeErr = errors.New("read-only filesystem")
	s := NewStore(idx, nil)

	if err := s.Record(ctx, "fp1", Meta{}); err == nil {
		t.Fatal("expected write error to be returned")
	}
	if !s.Has(ctx, "fp1") {
		t.Fatal("in-run set must still guard against reprocessing")
	}
}

func TestStore_NilIndex(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, nil)
	if !s.Degraded() {
		t.Fatal("nil index should start degraded")
	}
	if s.Has(ctx, "fp1") {
		t.Fatal("unexpected hit")
	}
	if err := s.Record(ctx, "fp1", Meta{}); err != nil {
		t.Fatalf("Record with nil index: %v", err)
	}
	if !s.Has(ctx, "fp1") {
		t.Fatal("in-run set not updated")
	}
}

func TestStore_PersistsAcrossRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	run := func() *Store {
		db, err := repository.Open(ctx, repository.Config{Path: path}, nil)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		return NewStore(repository.NewFingerprintIndex(db, nil), nil)
	}

	first := run()
	if first.Has(ctx, "fp") {
		t.Fatal("first run: unexpected hit")
	}
	if err := first.Record(ctx, "fp", Meta{SourceName: "note.pdf"}); err != nil {
		t.Fatal(err)
	}

	second := run()
	if !second.Has(ctx, "fp") {
		t.Fatal("second run: fingerprint from first run not found")
	}
}
