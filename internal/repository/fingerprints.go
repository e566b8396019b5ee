package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// IndexEntry is what gets remembered about a processed document.
type IndexEntry struct {
	Fingerprint string
	SourceName  string
	Strategy    string
	ProcessedAt time.Time
}

// FingerprintIndex is a persisted set of processed document fingerprints.
type FingerprintIndex interface {
	Has(ctx context.Context, fingerprint string) (bool, error)
	// Record adds the entry. It returns false when the fingerprint was already present.
	Record(ctx context.Context, e IndexEntry) (bool, error)
	Close() error
}

type sqliteIndex struct {
	db     *DB
	logger *slog.Logger
}

// NewFingerprintIndex returns the SQLite-backed index.
func NewFingerprintIndex(db *DB, logger *slog.Logger) FingerprintIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &sqliteIndex{db: db, logger: logger}
}

func (r *sqliteIndex) Has(ctx context.Context, fingerprint string) (bool, error) {
	b := entsql.Dialect(dialect.SQLite)
	q, args := b.Select("fingerprint").
		From(b.Table(tableProcessed)).
		Where(entsql.EQ("fingerprint", fingerprint)).
		Limit(1).
		Query()
	rows, err := r.db.query(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to query fingerprint", "fingerprint", fingerprint, "error", err)
		return false, fmt.Errorf("query fingerprint: %w", err)
	}
	defer func() { _ = rows.Close() }()
	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("scan fingerprint: %w", err)
	}
	return found, nil
}

func (r *sqliteIndex) Record(ctx context.Context, e IndexEntry) (bool, error) {
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now().UTC()
	}
	q, args := entsql.Dialect(dialect.SQLite).
		Insert(tableProcessed).
		Columns("fingerprint", "source_name", "strategy", "processed_at").
		Values(e.Fingerprint, e.SourceName, e.Strategy, e.ProcessedAt.Unix()).
		OnConflict(entsql.ConflictColumns("fingerprint"), entsql.DoNothing()).
		Query()
	n, err := r.db.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to record fingerprint", "fingerprint", e.Fingerprint, "source", e.SourceName, "error", err)
		return false, fmt.Errorf("record fingerprint: %w", err)
	}
	return n > 0, nil
}

// Close is a no-op: the DB is shared with the record cache and closed by its owner.
func (r *sqliteIndex) Close() error { return nil }
