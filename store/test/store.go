// Package test provides store test fixtures backed by a throwaway
// SQLite database per test.
package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lorekeep/lorekeep/internal/profile"
	"github.com/lorekeep/lorekeep/store"
	"github.com/lorekeep/lorekeep/store/db"
)

// NewTestingStore opens a migrated store on a fresh SQLite file.
// Set LOREKEEP_TEST_DRIVER=postgres and LOREKEEP_TEST_DSN to run the
// same tests against a real PostgreSQL instance with pgvector.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	p := &profile.Profile{
		Mode:   "dev",
		Driver: getDriverFromEnv(),
		DSN:    os.Getenv("LOREKEEP_TEST_DSN"),
	}
	if p.Driver == "sqlite" {
		p.DSN = filepath.Join(t.TempDir(), "lorekeep_test.db")
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("invalid test profile: %v", err)
	}

	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	s := store.New(driver, p)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Logf("failed to close store: %v", err)
		}
	})
	return s
}

func getDriverFromEnv() string {
	if driver := os.Getenv("LOREKEEP_TEST_DRIVER"); driver != "" {
		return driver
	}
	return "sqlite"
}
