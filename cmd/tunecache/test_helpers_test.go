package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
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

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, query string) (jobs.Identity, error) {
	return jobs.Identity{
		ContentID: "dQw4w9WgXcQ",
		Metadata:  jobs.Metadata{Title: "Track for " + query, Channel: "Test Channel", Duration: "3:33"},
		Views:     -1,
	}, nil
}

type stubProducer struct{ dir string }

func (p stubProducer) Produce(_ context.Context, contentID, attempt string) (string, error) {
	dir := filepath.Join(p.dir, contentID, attempt)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, contentID+".mp3")
	return path, os.WriteFile(path, []byte("ID3"), 0o644)
}

func (p stubProducer) Discard(contentID, attempt string) error {
	return os.RemoveAll(filepath.Join(p.dir, contentID, attempt))
}

type stubPublisher struct{}

func (stubPublisher) Publish(_ context.Context, path string) (string, error) {
	return "https://files.example/" + filepath.Base(path), nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *jobs.Store
	daemon     *daemon.Daemon
	serverURL  string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("MONGO_URL", "")
	t.Setenv("TUNECACHE_COOKIES", "")
	t.Setenv("TUNECACHE_API_TOKEN", "")

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(homeDir, ".config", "tunecache", "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	pool := workflow.NewPool(2, 8, logger)
	orch, err := orchestrator.New(store, stubProducer{dir: t.TempDir()}, stubPublisher{}, pool, logger, orchestrator.Options{
		StaleAfter: cfg.StaleAfter(),
	})
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	d, err := daemon.New(cfg, store, pool, api.NewPlayService(stubResolver{}, orch, logger), logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		serverURL:  "http://" + d.APIAddress(),
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, server, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if server != "" {
		flags = append(flags, "--server", server)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nstaging_dir = %q\nstate_dir = %q\nlog_dir = %q\napi_bind = %q\n\n[store]\nbackend = %q\n",
		cfg.Paths.StagingDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Store.Backend,
	)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
