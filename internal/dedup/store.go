// Package dedup decides whether a document was already processed.
package dedup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/deliverynotes/internal/repository"
)

// Meta describes the document being recorded.
type Meta struct {
	SourceName string
	Strategy   string
}

// Store wraps a persisted FingerprintIndex with an in-run set. A nil or failing
// index degrades to "process everything" rather than aborting the run; the
// in-run set still keeps a single run at-most-once per fingerprint.
type Store struct {
	index  repository.FingerprintIndex
	logger *slog.Logger

	mu       sync.Mutex
	seen     map[string]struct{}
	degraded bool
}

// NewStore builds a store over index. Pass a nil index when it could not be opened.
func NewStore(index repository.FingerprintIndex, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{index: index, logger: logger, seen: map[string]struct{}{}}
	if index == nil {
		s.degraded = true
		logger.Warn("dedup.index.unavailable", "effect", "all documents will be processed")
	}
	return s
}

// Has reports whether fingerprint is known, either from this run or the index.
// Index read errors are logged and treated as "not seen".
func (s *Store) Has(ctx context.Context, fingerprint string) bool {
	s.mu.Lock()
	_, ok := s.seen[fingerprint]
	idx := s.index
	s.mu.Unlock()
	if ok {
		return true
	}
	if idx == nil {
		return false
	}

	has, err := idx.Has(ctx, fingerprint)
	if err != nil {
		s.markDegraded()
		s.logger.Warn("dedup.index.read_failed", "fingerprint", fingerprint, "error", err)
		return false
	}
	return has
}

// Record marks fingerprint processed. The in-run set is always updated; a
// persistence failure is logged and returned so the caller can report it.
func (s *Store) Record(ctx context.Context, fingerprint string, meta Meta) error {
	s.mu.Lock()
	s.seen[fingerprint] = struct{}{}
	idx := s.index
	s.mu.Unlock()
	if idx == nil {
		return nil
	}

	_, err := idx.Record(ctx, repository.IndexEntry{
		Fingerprint: fingerprint,
		SourceName:  meta.SourceName,
		Strategy:    meta.Strategy,
		ProcessedAt: time.Now().UTC(),
	})
	if err != nil {
		s.markDegraded()
		s.logger.Warn("dedup.index.write_failed", "fingerprint", fingerprint, "source", meta.SourceName, "error", err)
		return err
	}
	return nil
}

// Degraded reports whether any index operation failed during this run.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *Store) markDegraded() {
	s.mu.Lock()
	s.degraded = true
	s.mu.Unlock()
}
