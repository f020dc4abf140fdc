package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nhle/daily-docket/internal/model"
)

// TasksKey is the blob key holding the JSON array of tasks.
const TasksKey = "dailyDocketTasks"

// ErrNotFound is returned by Load when the key has never been written.
var ErrNotFound = errors.New("blob key not found")

// Blob is a durable key-value store of opaque values. The planner keeps its
// whole task list under a single key and rewrites it on every mutation.
type Blob interface {
	// Load returns the value stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the value stored under key.
	Save(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying resources.
	Close() error
}

// Open returns the blob backend selected by cfg.
func Open(cfg model.StorageConfig) (Blob, error) {
	switch cfg.Backend {
	case model.BackendMemory:
		return NewMemoryBlob(), nil
	case model.BackendBolt:
		if err := ensureDir(cfg.Path); err != nil {
			return nil, err
		}
		return NewBoltBlob(cfg.Path)
	case model.BackendSQLite, "":
		if err := ensureDir(cfg.Path); err != nil {
			return nil, err
		}
		return NewSQLiteBlob(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// ensureDir creates the parent directory of a database file.
func ensureDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating storage directory %s: %w", dir, err)
	}
	return nil
}
