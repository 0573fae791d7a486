// Package warehouse defines the backend-agnostic repository interface for
// the star-schema warehouse, plus the table specs the backends generate DDL
// from. Backends (postgres, sqlite, mssql) register themselves with the
// factory; callers select one by kind.
package warehouse

import (
	"context"
	"fmt"
	"sync"
)

// Config is the minimal configuration needed to create a repository.
type Config struct {
	Kind string
	DSN  string
}

// MergeSpec describes one SCD Type-1 dimension merge. Rows passed alongside
// it are ordered [key, attrs...] matching KeyColumn then AttrColumns.
type MergeSpec struct {
	// Target is the persistent dimension table; Staging is its transient
	// counterpart, fully replaced on every merge.
	Target  string
	Staging string

	// KeyColumn is the natural key column present in both tables.
	KeyColumn string

	// AttrColumns are the non-key attribute columns overwritten by the merge.
	AttrColumns []string
}

// Columns returns the insert column list for staging rows.
func (m MergeSpec) Columns() []string {
	return append([]string{m.KeyColumn}, m.AttrColumns...)
}

// Repository is the warehouse collaborator. Each backend implements these
// semantics in its own dialect (UPDATE ... FROM, placeholder styles, PK
// auto-generation).
//
// Surrogate keys are read back with SelectKeyValue after writes complete.
// This is an explicit two-step protocol (write, then read) rather than
// INSERT ... RETURNING: it is the one mechanism all backends share, and the
// pipeline is single-writer so there is no window for the read to go stale.
type Repository interface {
	// Close releases connections. Call once at the end of a run.
	Close()

	// EnsureSchema creates the star-schema tables if they do not exist.
	// Idempotent; safe to run on every invocation.
	EnsureSchema(ctx context.Context) error

	// InsertRows bulk-appends rows into a table. Unique-constraint
	// violations surface as errors; the caller decides what they mean.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// ReplaceRows replaces the full contents of a table with rows, in one
	// transaction.
	ReplaceRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// MergeDimension performs an SCD Type-1 merge in one transaction:
	// clear staging, load rows into staging, UPDATE target attributes for
	// natural keys present in both tables, then INSERT staging rows whose
	// natural key is absent from the target. UPDATE runs before INSERT,
	// deterministically. Prior attribute values are unrecoverable afterward.
	MergeDimension(ctx context.Context, spec MergeSpec, rows [][]any) error

	// SelectKeyValue reads the full table and returns keyColumn -> valueColumn,
	// used to build natural-to-surrogate key maps.
	SelectKeyValue(ctx context.Context, table, keyColumn, valueColumn string) (map[int64]int64, error)
}

// LoadError reports a failed warehouse operation: a constraint violation or
// a connectivity failure during a write or read-back.
type LoadError struct {
	Table string
	Op    string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s (%s): %v", e.Table, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ---- backend factories ----

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres"). It is called
// from init() in backend packages. Registering the same kind twice panics to
// fail fast on ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("warehouse: Register called with empty kind")
	}
	if f == nil {
		panic("warehouse: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("warehouse: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("warehouse: missing warehouse.kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("warehouse: unsupported warehouse.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
