package testutil

import (
	"path/filepath"
	"testing"

	"ftrack-go/internal/database"
	"ftrack-go/internal/ftrack"
)

// NewTestStore creates a fresh store in a temp directory with schema
// applied. The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) *database.SQLiteStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "files.db")
	store, err := database.Create(path, ftrack.NewNopLogger())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
