package store

import (
	"path/filepath"
	"testing"
)

func TestMigrations_AppliedOnOpen(t *testing.T) {
	st := testStore(t)

	status, err := MigrationPlan(st.DB())
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if status.CurrentVersion != status.AvailableVersion {
		t.Fatalf("expected fully migrated store, current=%d available=%d",
			status.CurrentVersion, status.AvailableVersion)
	}
	if len(status.Pending) != 0 {
		t.Fatalf("expected no pending migrations, got %+v", status.Pending)
	}
}

func TestMigrations_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	st, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer st.Close()

	var count int
	if err := st.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count applied: %v", err)
	}
	if count != len(migrations) {
		t.Fatalf("expected %d applied migrations, got %d", len(migrations), count)
	}
}

func TestMigrations_VersionsAreUniqueAndOrdered(t *testing.T) {
	seen := map[int]bool{}
	for _, m := range migrations {
		if m.Version <= 0 {
			t.Fatalf("migration %q has non-positive version %d", m.Description, m.Version)
		}
		if seen[m.Version] {
			t.Fatalf("duplicate migration version %d", m.Version)
		}
		seen[m.Version] = true
	}
}
