package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

// RecordCache keeps normalized records so sinks can be re-run without re-extraction.
type RecordCache interface {
	Put(ctx context.Context, rec entity.DeliveryRecord) error
	Get(ctx context.Context, fingerprint string) (*entity.DeliveryRecord, error)
	List(ctx context.Context) ([]entity.DeliveryRecord, error)
}

type recordRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewRecordCache(db *DB, logger *slog.Logger) RecordCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &recordRepo{db: db, logger: logger}
}

func (r *recordRepo) Put(ctx context.Context, rec entity.DeliveryRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	incomplete := 0
	if rec.Incomplete {
		incomplete = 1
	}
	q, args := entsql.Dialect(dialect.SQLite).
		Insert(tableRecords).
		Columns("fingerprint", "source_name", "incomplete", "payload", "processed_at").
		Values(rec.Fingerprint, rec.SourceName, incomplete, string(payload), rec.ProcessedAt.Unix()).
		OnConflict(entsql.ConflictColumns("fingerprint"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.exec(ctx, q, args); err != nil {
		r.logger.Error("failed to cache record", "fingerprint", rec.Fingerprint, "error", err)
		return fmt.Errorf("cache record: %w", err)
	}
	return nil
}

func (r *recordRepo) Get(ctx context.Context, fingerprint string) (*entity.DeliveryRecord, error) {
	b := entsql.Dialect(dialect.SQLite)
	q, args := b.Select("payload").
		From(b.Table(tableRecords)).
		Where(entsql.EQ("fingerprint", fingerprint)).
		Query()
	recs, err := r.scan(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// List returns every cached record, oldest first.
func (r *recordRepo) List(ctx context.Context) ([]entity.DeliveryRecord, error) {
	b := entsql.Dialect(dialect.SQLite)
	q, args := b.Select("payload").
		From(b.Table(tableRecords)).
		OrderBy("processed_at", "fingerprint").
		Query()
	return r.scan(ctx, q, args)
}

func (r *recordRepo) scan(ctx context.Context, q string, args []any) ([]entity.DeliveryRecord, error) {
	rows, err := r.db.query(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to query records", "error", err)
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []entity.DeliveryRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec entity.DeliveryRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
