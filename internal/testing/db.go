// Package testing provides the shared database helper and domain
// fixtures used across the package tests.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/liquidity-sentinel/internal/database"
)

// NewTestDB opens an isolated file-backed database under t.TempDir()
// and applies the embedded schema for name ("market" or "risk"; other
// names get an empty database). The returned cleanup only closes the
// connection - the file goes away with the test's temp dir.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to open test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database %s: %v", name, err)
		}
	}
}
