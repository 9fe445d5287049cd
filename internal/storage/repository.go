// Package storage holds the backend-agnostic contracts for loading the
// transformed tables into a database, plus a registry that concrete backends
// join from their init functions.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bggetl/internal/ddl"
)

// Repository replaces whole tables. Every load drops and recreates its
// destination table, so repeated runs never append to stale data.
type Repository interface {
	// ReplaceTable drops def.FQN if it exists and creates it from def.
	// Backends fill in SQL types from each column's Kind.
	ReplaceTable(ctx context.Context, def ddl.TableDef) error
	// CopyFrom bulk-inserts rows aligned to columns into table.
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend available under kind. It panics on a nil factory
// or a duplicate kind, both of which are wiring bugs.
func Register(kind string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("storage: Register factory is nil for " + kind)
	}
	if _, dup := registry[kind]; dup {
		panic("storage: Register called twice for " + kind)
	}
	registry[kind] = f
}

// New opens the backend registered under cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	registryMu.RLock()
	f, ok := registry[cfg.Kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
