package jobs_test

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"tunecache/internal/jobs"
)

func TestOpenPathRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	store, err := jobs.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 42"); err != nil {
		t.Fatalf("bump user_version: %v", err)
	}
	_ = db.Close()

	if _, err := jobs.OpenPath(path); !errors.Is(err, jobs.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
