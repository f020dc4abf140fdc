package testutil

import (
	"path/filepath"
	"testing"

	"github.com/nhle/daily-docket/internal/store"
)

// NewTestBlob creates an in-memory SQLite blob with all migrations applied.
// It is closed when the test completes.
func NewTestBlob(t *testing.T) *store.SQLiteBlob {
	t.Helper()

	b, err := store.NewSQLiteBlob(":memory:")
	if err != nil {
		t.Fatalf("creating test blob: %v", err)
	}

	t.Cleanup(func() {
		if err := b.Close(); err != nil {
			t.Errorf("closing test blob: %v", err)
		}
	})

	return b
}

// NewBoltBlob creates a bbolt blob in the test's temp directory.
func NewBoltBlob(t *testing.T) *store.BoltBlob {
	t.Helper()

	b, err := store.NewBoltBlob(filepath.Join(t.TempDir(), "docket.bolt"))
	if err != nil {
		t.Fatalf("creating bolt blob: %v", err)
	}

	t.Cleanup(func() {
		if err := b.Close(); err != nil {
			t.Errorf("closing bolt blob: %v", err)
		}
	})

	return b
}
