// Package sqlite implements storage.Repository on database/sql with the
// pure-Go modernc.org/sqlite driver. SQLite has no COPY, so rows go through
// a prepared INSERT inside one transaction per batch.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"bggetl/internal/ddl"
)

// Config holds the database location.
type Config struct {
	// DSN is a file path or a "file:" URI, e.g. "bgg.db" or
	// "file:bgg.db?_pragma=busy_timeout(5000)".
	DSN string
}

// Repository loads tables into a SQLite file through modernc.org/sqlite.
type Repository struct {
	db *sql.DB
}

// NewRepository opens and pings the database.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Repository{db: db}, func() { db.Close() }, nil
}

// MapType maps a column kind to a SQLite type affinity.
func MapType(k ddl.Kind) string {
	switch k {
	case ddl.KindInt:
		return "INTEGER"
	case ddl.KindReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// ReplaceTable drops and recreates def in one transaction.
func (r *Repository) ReplaceTable(ctx context.Context, def ddl.TableDef) error {
	create, err := ddl.BuildCreateTableSQL(def.WithTypes(MapType), ddl.QuoteIdent)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+ddl.QuoteIdent(def.FQN)); err != nil {
		return fmt.Errorf("sqlite: drop %s: %w", def.FQN, err)
	}
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("sqlite: create %s: %w", def.FQN, err)
	}
	return tx.Commit()
}

// insertSQL renders INSERT INTO "t" ("a", "b") VALUES (?, ?).
func insertSQL(table string, columns []string) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = ddl.QuoteIdent(c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ddl.QuoteIdent(table),
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "),
	)
}

// CopyFrom inserts rows with one prepared statement inside a transaction.
// Either every row lands or none does.
func (r *Repository) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertSQL(table, columns))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("sqlite: CopyFrom: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return int64(len(rows)), nil
}

// DB exposes the handle for read-back in tests and tooling.
func (r *Repository) DB() *sql.DB { return r.db }
