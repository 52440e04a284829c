package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tunecache/internal/api"
	"tunecache/internal/config"
	"tunecache/internal/daemon"
	"tunecache/internal/jobs"
	"tunecache/internal/logging"
	"tunecache/internal/orchestrator"
	"tunecache/internal/testsupport"
	"tunecache/internal/workflow"
)

type staticResolver struct{}

func (staticResolver) Resolve(_ context.Context, query string) (jobs.Identity, error) {
	return jobs.Identity{ContentID: "abc123", Metadata: jobs.Metadata{Title: query}, Views: -1}, nil
}

type fileProducer struct{ dir string }

func (p fileProducer) Produce(_ context.Context, contentID, attempt string) (string, error) {
	dir := filepath.Join(p.dir, contentID, attempt)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, contentID+".mp3")
	return path, os.WriteFile(path, []byte("ID3"), 0o644)
}

func (p fileProducer) Discard(contentID, attempt string) error {
	return os.RemoveAll(filepath.Join(p.dir, contentID, attempt))
}

type echoPublisher struct{}

func (echoPublisher) Publish(_ context.Context, path string) (string, error) {
	return "https://files.example/" + filepath.Base(path), nil
}

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	pool := workflow.NewPool(2, 8, logging.NewNop())
	orch, err := orchestrator.New(store, fileProducer{dir: t.TempDir()}, echoPublisher{}, pool, logging.NewNop(), orchestrator.Options{
		StaleAfter: cfg.StaleAfter(),
	})
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	play := api.NewPlayService(staticResolver{}, orch, logging.NewNop())
	d, err := daemon.New(cfg, store, pool, play, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func getJSON(t *testing.T, url, token string, out any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running || status.Store != config.BackendSQLite {
		t.Fatalf("unexpected status %#v", status)
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}
	if d.APIAddress() == "" {
		t.Fatal("expected api to be listening")
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if d.APIAddress() != "" {
		t.Fatal("expected api listener to be closed")
	}
}

func TestDaemonLockIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	second := newDaemon(t, cfg)
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected second daemon on the same state dir to fail")
	}
}

func TestDaemonServesPlayUntilCached(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	base := "http://" + d.APIAddress()

	var info api.ServiceInfo
	if code := getJSON(t, base+"/", "", &info); code != http.StatusOK || info.Status != "Running" {
		t.Fatalf("unexpected root response %d %#v", code, info)
	}

	var first api.PlayResponse
	if code := getJSON(t, base+"/play?query=lofi+beats", "", &first); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if first.Status != api.StatusProcessing || first.ETA != "30 seconds" || first.VideoID != "abc123" {
		t.Fatalf("unexpected first response %#v", first)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var resp api.PlayResponse
		getJSON(t, base+"/play?query=lofi+beats", "", &resp)
		if resp.Status == api.StatusSuccess {
			if resp.URL != "https://files.example/abc123.mp3" {
				t.Fatalf("unexpected url %q", resp.URL)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for cached response, last %#v", resp)
		}
		time.Sleep(10 * time.Millisecond)
	}

	var missing api.PlayResponse
	if code := getJSON(t, base+"/play", "", &missing); code != http.StatusBadRequest || missing.Status != api.StatusError {
		t.Fatalf("expected 400 for missing query, got %d %#v", code, missing)
	}

	var list api.RecordListResponse
	if code := getJSON(t, base+"/api/records?state=completed", "", &list); code != http.StatusOK || len(list.Records) != 1 {
		t.Fatalf("unexpected record list %d %#v", code, list)
	}
	var one api.RecordResponse
	if code := getJSON(t, base+"/api/records/abc123", "", &one); code != http.StatusOK || one.Record.State != "completed" {
		t.Fatalf("unexpected record %d %#v", code, one)
	}
	if code := getJSON(t, base+"/api/records/nope", "", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown record, got %d", code)
	}
	if code := getJSON(t, base+"/api/records?state=bogus", "", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown state, got %d", code)
	}

	var health api.HealthResponse
	if code := getJSON(t, base+"/api/health", "", &health); code != http.StatusOK {
		t.Fatalf("expected 200 health, got %d", code)
	}
	if !health.Running || health.Stats["completed"] != 1 || health.Pool.Workers != 2 {
		t.Fatalf("unexpected health %#v", health)
	}
}

func TestDaemonAPITokenProtectsAPINamespace(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("s3cret"))
	d := newDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	base := "http://" + d.APIAddress()

	if code := getJSON(t, base+"/api/health", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}
	if code := getJSON(t, base+"/api/health", "wrong", nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", code)
	}
	if code := getJSON(t, base+"/api/health", "s3cret", nil); code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", code)
	}
	if code := getJSON(t, base+"/", "", nil); code != http.StatusOK {
		t.Fatalf("expected root to stay public, got %d", code)
	}
}
