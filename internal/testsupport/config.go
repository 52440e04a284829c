package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"tunecache/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Store.Backend = config.BackendSQLite
	cfgVal.YTDLP.CookiesFile = ""
	cfgVal.YTDLP.Accelerator = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithStaleAfter overrides the processing staleness threshold in seconds.
func WithStaleAfter(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.StaleAfter = seconds
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default tunecache external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg"}
		}
		for _, name := range names {
			writeStub(b.t, b.baseDir, name, "exit 0\n")
		}
		prependPath(b.t, filepath.Join(b.baseDir, "bin"))
	}
}

// WithStubScript writes an executable shell script named name with the given
// body and points the yt-dlp binary at it when name is "yt-dlp".
func WithStubScript(name, body string) ConfigOption {
	return func(b *configBuilder) {
		path := writeStub(b.t, b.baseDir, name, body)
		if name == "yt-dlp" {
			b.cfg.YTDLP.Binary = path
		}
		prependPath(b.t, filepath.Join(b.baseDir, "bin"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}

func writeStub(t testing.TB, baseDir, name, body string) string {
	t.Helper()
	binDir := filepath.Join(baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, name)
	script := []byte("#!/bin/sh\n" + body)
	if err := os.WriteFile(target, script, 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

func prependPath(t testing.TB, dir string) {
	t.Helper()
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}
