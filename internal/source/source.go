// Package source abstracts the object store the extractor reads from.
//
// Backends register themselves under a kind ("s3", "file") the same way the
// warehouse backends do, so cmd wiring stays free of backend imports.
package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/config"
)

// Store is a byte-returning fetch by bucket and key.
type Store interface {
	// Get returns the full contents of an object.
	//
	// Failures are classified so callers can decide on retry behavior:
	//   - ErrNotFound: the bucket or key does not exist.
	//   - ErrAccessDenied: credentials are present but rejected.
	//   - everything else is treated as transient (network, throttling).
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

var (
	ErrNotFound     = errors.New("source: object not found")
	ErrAccessDenied = errors.New("source: access denied")
)

type factory func(cfg config.Source) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a source backend under a kind. It is called from init()
// in backend files; registering the same kind twice panics to fail fast on
// ambiguous wiring.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("source: Register called with empty kind")
	}
	if f == nil {
		panic("source: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("source: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Store for the configured source kind.
func New(cfg config.Source) (Store, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("source: missing source.kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("source: unsupported source.kind=%s", cfg.Kind)
	}
	return f(cfg)
}
