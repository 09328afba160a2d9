package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigrationFile(t *testing.T, dir, name, sql string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadMigrations_SortsByVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigrationFile(t, dir, "002_indexes.sql", "CREATE INDEX x ON y(z);")
	writeMigrationFile(t, dir, "001_reports.sql", "CREATE TABLE y (z INT);")
	writeMigrationFile(t, dir, "010_later.sql", "ALTER TABLE y ADD w INT;")

	m := NewMigrator(nil, dir)
	migs, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migs) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migs))
	}
	if migs[0].Version != 1 || migs[1].Version != 2 || migs[2].Version != 10 {
		t.Errorf("expected versions [1 2 10], got [%d %d %d]", migs[0].Version, migs[1].Version, migs[2].Version)
	}
}

func TestLoadMigrations_SkipsNonNumericAndNonSQL(t *testing.T) {
	dir := t.TempDir()
	writeMigrationFile(t, dir, "001_reports.sql", "CREATE TABLE y (z INT);")
	writeMigrationFile(t, dir, "README.md", "notes")
	writeMigrationFile(t, dir, "draft_change.sql", "SELECT 1;")

	m := NewMigrator(nil, dir)
	migs, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migs) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(migs))
	}
	if migs[0].Name != "001_reports.sql" {
		t.Errorf("expected 001_reports.sql, got %s", migs[0].Name)
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	m := NewMigrator(nil, "/nonexistent/migrations")
	if _, err := m.LoadMigrations(); err == nil {
		t.Error("expected error for missing directory")
	}
}
