package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"tunecache/internal/config"
	"tunecache/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRecord creates a processing record for contentID and returns its attempt token.
func NewRecord(t testing.TB, store jobs.Repository, contentID string, meta jobs.Metadata) string {
	t.Helper()

	attempt := uuid.NewString()
	if err := store.Create(context.Background(), contentID, meta, attempt); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return attempt
}

// MustGet fetches a record and fails the test when it is missing.
func MustGet(t testing.TB, store jobs.Repository, contentID string) *jobs.Record {
	t.Helper()

	rec, err := store.Get(context.Background(), contentID)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	if rec == nil {
		t.Fatalf("record %s not found", contentID)
	}
	return rec
}
