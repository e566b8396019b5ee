package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "modernc.org/sqlite"
)

const (
	tableProcessed = "processed_documents"
	tableRecords   = "delivery_records"
)

type Config struct {
	Path        string // file path or ":memory:"
	BusyTimeout time.Duration
}

// DB is the local index database: the processed-fingerprint set and the record cache.
type DB struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite index, applies pragmas and ensures the schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 10 * time.Second
	}
	logger.Info("opening index database", "path", cfg.Path)

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("index db: mkdir: %w", err)
		}
	}
	sqldb, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		logger.Error("failed to open index database", "error", err)
		return nil, fmt.Errorf("index db: open: %w", err)
	}
	// one connection: a single writer, and ":memory:" is per-connection
	sqldb.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := sqldb.ExecContext(ctx, p); err != nil {
			_ = sqldb.Close()
			logger.Error("failed to apply pragma", "pragma", p, "error", err)
			return nil, fmt.Errorf("index db: %s: %w", p, err)
		}
	}

	db := &DB{drv: entsql.OpenDB(dialect.SQLite, sqldb), logger: logger}
	if err := db.migrate(ctx); err != nil {
		_ = sqldb.Close()
		logger.Error("failed to migrate index database", "error", err)
		return nil, err
	}
	logger.Info("index database ready", "path", cfg.Path)
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	b := entsql.Dialect(dialect.SQLite)
	stmts := []*entsql.TableBuilder{
		b.CreateTable(tableProcessed).IfNotExists().
			Columns(
				entsql.Column("fingerprint").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("source_name").Type("TEXT"),
				entsql.Column("strategy").Type("TEXT"),
				entsql.Column("processed_at").Type("INTEGER").Attr("NOT NULL"),
			).
			PrimaryKey("fingerprint"),
		b.CreateTable(tableRecords).IfNotExists().
			Columns(
				entsql.Column("fingerprint").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("source_name").Type("TEXT"),
				entsql.Column("incomplete").Type("INTEGER").Attr("NOT NULL"),
				entsql.Column("payload").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("processed_at").Type("INTEGER").Attr("NOT NULL"),
			).
			PrimaryKey("fingerprint"),
	}
	for _, st := range stmts {
		q, args := st.Query()
		if err := db.drv.Exec(ctx, q, args, nil); err != nil {
			return fmt.Errorf("index db: create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connections gracefully
func (db *DB) Close() error {
	if db == nil || db.drv == nil {
		return nil
	}
	db.logger.Info("closing index database")
	return db.drv.Close()
}

// HealthCheck pings the database.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.drv.DB().PingContext(ctx)
}

func (db *DB) exec(ctx context.Context, q string, args []any) (int64, error) {
	var res sql.Result
	if err := db.drv.Exec(ctx, q, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *DB) query(ctx context.Context, q string, args []any) (*entsql.Rows, error) {
	rows := &entsql.Rows{}
	if err := db.drv.Query(ctx, q, args, rows); err != nil {
		return nil, err
	}
	return rows, nil
}
