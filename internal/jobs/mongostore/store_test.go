package mongostore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"tunecache/internal/jobs"
	"tunecache/internal/testsupport"
)

func TestDocumentRoundTripPreservesRecord(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	doc := newDocument("vid-1", jobs.Metadata{Title: "Song", Channel: "Artist"}, "attempt-1", ts)

	rec := doc.record()
	if rec.ContentID != "vid-1" || rec.State != jobs.StateProcessing {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if rec.Attempt != "attempt-1" || rec.Attempts != 1 {
		t.Fatalf("unexpected attempt bookkeeping: %#v", rec)
	}
	if rec.LastHeartbeat == nil || !rec.LastHeartbeat.Equal(ts) {
		t.Fatalf("expected heartbeat %v, got %v", ts, rec.LastHeartbeat)
	}
	if rec.Title != "Song" || rec.Channel != "Artist" {
		t.Fatalf("unexpected metadata: %#v", rec.Metadata())
	}
}

func TestOpenRequiresURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Store.MongoURL = ""
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Fatal("expected error without mongo_url")
	}
}

// TestStoreAgainstServer runs the transition contract against a live server
// when TUNECACHE_TEST_MONGO_URL is set.
func TestStoreAgainstServer(t *testing.T) {
	url := os.Getenv("TUNECACHE_TEST_MONGO_URL")
	if url == "" {
		t.Skip("TUNECACHE_TEST_MONGO_URL not set")
	}
	cfg := testsupport.NewConfig(t)
	cfg.Store.MongoURL = url
	cfg.Store.MongoDatabase = "tunecache_test"
	cfg.Store.MongoCollection = "records_" + uuid.NewString()[:8]

	ctx := context.Background()
	store, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		_ = store.collection.Drop(context.Background())
		_ = store.Close()
	})

	attempt := testsupport.NewRecord(t, store, "vid-m", jobs.Metadata{})
	if err := store.Create(ctx, "vid-m", jobs.Metadata{}, uuid.NewString()); !errors.Is(err, jobs.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if err := store.EnrichMetadata(ctx, "vid-m", jobs.Metadata{Title: "Filled"}); err != nil {
		t.Fatalf("EnrichMetadata failed: %v", err)
	}
	if err := store.Fail(ctx, "vid-m", attempt, "boom"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}
	next := uuid.NewString()
	if err := store.Retry(ctx, "vid-m", next); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if err := store.Complete(ctx, "vid-m", attempt, "https://files/m.mp3"); !errors.Is(err, jobs.ErrConflict) {
		t.Fatalf("expected stale attempt to conflict, got %v", err)
	}
	if err := store.Complete(ctx, "vid-m", next, "https://files/m.mp3"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	rec := testsupport.MustGet(t, store, "vid-m")
	if rec.State != jobs.StateCompleted || rec.ErrorDetail != "" || rec.Title != "Filled" || rec.Attempts != 2 {
		t.Fatalf("unexpected record: %#v", rec)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[jobs.StateCompleted] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}
