// Package postgres implements storage.Repository on pgx v5. Tables are
// dropped and recreated in one transaction, then filled with COPY.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bggetl/internal/ddl"
)

// Config holds the connection string, e.g. "postgres://user:pw@host/bgg".
type Config struct {
	DSN string
}

// Repository loads tables through a pgx pool using the COPY protocol.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository connects a pool and returns it with its close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{pool: pool}, pool.Close, nil
}

// MapType maps a column kind to a Postgres type.
func MapType(k ddl.Kind) string {
	switch k {
	case ddl.KindInt:
		return "BIGINT"
	case ddl.KindReal:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

// replaceStatements renders the DROP and CREATE pair for def.
func replaceStatements(def ddl.TableDef) ([]string, error) {
	create, err := ddl.BuildCreateTableSQL(def.WithTypes(MapType), pgFQN)
	if err != nil {
		return nil, err
	}
	return []string{"DROP TABLE IF EXISTS " + pgFQN(def.FQN), create}, nil
}

// ReplaceTable drops and recreates def in one transaction. Column kinds map
// through MapType; a schema-qualified FQN such as "bgg.game_details" is
// quoted per part.
func (r *Repository) ReplaceTable(ctx context.Context, def ddl.TableDef) error {
	stmts, err := replaceStatements(def)
	if err != nil {
		return err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, s := range stmts {
		if _, err := tx.Exec(ctx, s); err != nil {
			return fmt.Errorf("postgres: exec %q: %w", s, err)
		}
	}
	return tx.Commit(ctx)
}

// CopyFrom streams rows into table with COPY. A server error that carries a
// detail is reported as that detail plus its SQLSTATE.
func (r *Repository) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	n, err := r.pool.CopyFrom(ctx, splitFQN(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return n, fmt.Errorf("postgres: copy into %s: %s (%s)", table, pgErr.Detail, pgErr.SQLState())
		}
		return n, fmt.Errorf("postgres: copy into %s: %w", table, err)
	}
	return n, nil
}

// pgFQN quotes a possibly schema-qualified name: public.games becomes
// "public"."games".
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = ddl.QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// splitFQN converts "schema.table" into a pgx.Identifier.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
