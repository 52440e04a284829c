package ytdlp_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"tunecache/internal/services"
	"tunecache/internal/testsupport"
	"tunecache/internal/ytdlp"
)

type stubExecutor struct {
	stdout []byte
	stderr string
	err    error
	run    func(args []string)
	args   [][]string
}

func (s *stubExecutor) Output(_ context.Context, _ string, args []string) ([]byte, string, error) {
	s.args = append(s.args, append([]string(nil), args...))
	if s.run != nil {
		s.run(args)
	}
	return s.stdout, s.stderr, s.err
}

const (
	attemptA = "6f1c2b9e-0d4a-4c55-9a1e-2f3b4c5d6e7f"
	attemptB = "0a9b8c7d-6e5f-4a3b-8c2d-1e0f9a8b7c6d"
)

const videoJSON = `{"id":"dQw4w9WgXcQ","title":"Never Gonna Give You Up","duration":213,"duration_string":"3:33","thumbnail":"https://i.ytimg.com/vi/dQw4w9WgXcQ/maxresdefault.jpg","uploader":"Rick Astley","channel":"Rick Astley","view_count":1500000000,"webpage_url":"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`

func newClient(t *testing.T, exec ytdlp.Executor, opts ...ytdlp.Option) *ytdlp.Client {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	client, err := ytdlp.New(cfg, append([]ytdlp.Option{ytdlp.WithExecutor(exec)}, opts...)...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestResolveLinkUsesURLDirectly(t *testing.T) {
	exec := &stubExecutor{stdout: []byte(videoJSON)}
	client := newClient(t, exec)

	identity, err := client.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if identity.ContentID != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected content id %q", identity.ContentID)
	}
	if identity.Metadata.Title != "Never Gonna Give You Up" || identity.Metadata.Duration != "3:33" || identity.Metadata.Channel != "Rick Astley" {
		t.Fatalf("unexpected metadata %#v", identity.Metadata)
	}
	if identity.Views != 1500000000 {
		t.Fatalf("unexpected views %d", identity.Views)
	}
	args := exec.args[0]
	if args[len(args)-1] != "https://youtu.be/dQw4w9WgXcQ" {
		t.Fatalf("expected link passed through, got %v", args)
	}
	for _, flag := range []string{"-J", "--no-playlist", "--no-check-formats"} {
		if !slices.Contains(args, flag) {
			t.Fatalf("expected %s in args %v", flag, args)
		}
	}
}

func TestResolveFreeTextSearchesTopResult(t *testing.T) {
	exec := &stubExecutor{stdout: []byte(`{"_type":"playlist","entries":[` + videoJSON + `]}`)}
	client := newClient(t, exec)

	identity, err := client.Resolve(context.Background(), "never gonna give you up")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if identity.ContentID != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected content id %q", identity.ContentID)
	}
	if got := exec.args[0][len(exec.args[0])-1]; got != "ytsearch1:never gonna give you up" {
		t.Fatalf("expected search target, got %q", got)
	}
}

func TestResolveRejectsUnsupportedSources(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"other extractor", `{"id":"123456789","title":"Set","extractor_key":"Soundcloud","webpage_url":"https://soundcloud.com/a/b"}`},
		{"non canonical id", `{"id":"clip-42","title":"Clip","extractor_key":"Youtube"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newClient(t, &stubExecutor{stdout: []byte(tc.payload)})
			_, err := client.Resolve(context.Background(), "https://example.com/track")
			var resErr *ytdlp.ResolutionError
			if !errors.As(err, &resErr) || !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation ResolutionError, got %v", err)
			}
		})
	}
}

func TestResolveAcceptsYouTubeExtractor(t *testing.T) {
	payload := strings.Replace(videoJSON, `"id":"dQw4w9WgXcQ"`, `"id":"dQw4w9WgXcQ","extractor_key":"Youtube"`, 1)
	client := newClient(t, &stubExecutor{stdout: []byte(payload)})
	identity, err := client.Resolve(context.Background(), "https://music.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil || identity.ContentID != "dQw4w9WgXcQ" {
		t.Fatalf("expected youtube result to resolve, got %#v err=%v", identity, err)
	}
}

func TestResolveEmptySearchIsNotFound(t *testing.T) {
	client := newClient(t, &stubExecutor{stdout: []byte(`{"_type":"playlist","entries":[]}`)})

	_, err := client.Resolve(context.Background(), "zzzz no such song")
	var resErr *ytdlp.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
}

func TestResolveRejectsEmptyQuery(t *testing.T) {
	exec := &stubExecutor{}
	client := newClient(t, exec)
	_, err := client.Resolve(context.Background(), "   ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(exec.args) != 0 {
		t.Fatal("expected no tool invocation for empty query")
	}
}

func TestResolveToolFailureCarriesStderr(t *testing.T) {
	client := newClient(t, &stubExecutor{
		stderr: "WARNING: something\nERROR: [youtube] abc: Sign in to confirm your age\n",
		err:    errors.New("exit status 1"),
	})
	_, err := client.Resolve(context.Background(), "https://www.youtube.com/watch?v=abc")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Sign in to confirm your age") {
		t.Fatalf("expected stderr detail in %q", err.Error())
	}
}

func TestProduceWritesArtifact(t *testing.T) {
	exec := &stubExecutor{}
	client := newClient(t, exec, ytdlp.WithLookPath(func(string) (string, error) { return "/usr/bin/aria2c", nil }))
	exec.run = func(args []string) {
		if err := os.WriteFile(client.ArtifactPath("dQw4w9WgXcQ", attemptA), []byte("ID3"), 0o644); err != nil {
			t.Errorf("write artifact: %v", err)
		}
	}

	path, err := client.Produce(context.Background(), "dQw4w9WgXcQ", attemptA)
	if err != nil {
		t.Fatalf("Produce returned error: %v", err)
	}
	if filepath.Base(path) != "dQw4w9WgXcQ.mp3" {
		t.Fatalf("unexpected artifact path %q", path)
	}
	args := exec.args[0]
	if args[len(args)-1] != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("expected watch url, got %v", args)
	}
	for _, flag := range []string{"bestaudio/best", "-x", "mp3", "128K", "--geo-bypass", "--no-check-certificates"} {
		if !slices.Contains(args, flag) {
			t.Fatalf("expected %s in args %v", flag, args)
		}
	}
	if slices.Contains(args, "--downloader") {
		t.Fatalf("accelerator disabled in config but passed: %v", args)
	}

	if filepath.Base(filepath.Dir(path)) != attemptA {
		t.Fatalf("expected artifact in attempt directory, got %q", path)
	}
	if !slices.Contains(args, filepath.Join(filepath.Dir(path), "dQw4w9WgXcQ.%(ext)s")) {
		t.Fatalf("expected output template inside attempt directory, got %v", args)
	}

	if err := client.Discard("dQw4w9WgXcQ", attemptA); err != nil {
		t.Fatalf("Discard returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(path)); !os.IsNotExist(err) {
		t.Fatalf("expected attempt directory removed, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Dir(filepath.Dir(path))); !os.IsNotExist(err) {
		t.Fatalf("expected empty content directory removed, stat err=%v", err)
	}
}

func TestDiscardOnlyTouchesItsOwnAttempt(t *testing.T) {
	exec := &stubExecutor{}
	client := newClient(t, exec)
	var current string
	exec.run = func([]string) {
		_ = os.WriteFile(client.ArtifactPath("dQw4w9WgXcQ", current), []byte("ID3"), 0o644)
	}

	current = attemptA
	older, err := client.Produce(context.Background(), "dQw4w9WgXcQ", attemptA)
	if err != nil {
		t.Fatalf("Produce %s returned error: %v", attemptA, err)
	}
	current = attemptB
	newer, err := client.Produce(context.Background(), "dQw4w9WgXcQ", attemptB)
	if err != nil {
		t.Fatalf("Produce %s returned error: %v", attemptB, err)
	}

	if err := client.Discard("dQw4w9WgXcQ", attemptA); err != nil {
		t.Fatalf("Discard returned error: %v", err)
	}
	if _, err := os.Stat(older); !os.IsNotExist(err) {
		t.Fatalf("expected older artifact removed, stat err=%v", err)
	}
	if _, err := os.Stat(newer); err != nil {
		t.Fatalf("expected newer artifact kept: %v", err)
	}
}

func TestProduceRejectsMalformedAttempt(t *testing.T) {
	exec := &stubExecutor{}
	client := newClient(t, exec)
	if _, err := client.Produce(context.Background(), "dQw4w9WgXcQ", "../x"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(exec.args) != 0 {
		t.Fatal("expected no tool invocation for malformed attempt")
	}
}

func TestProduceUsesAcceleratorWhenAvailable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.YTDLP.Accelerator = true
	exec := &stubExecutor{}
	client, err := ytdlp.New(cfg,
		ytdlp.WithExecutor(exec),
		ytdlp.WithLookPath(func(string) (string, error) { return "/usr/bin/aria2c", nil }),
	)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	exec.run = func([]string) {
		_ = os.WriteFile(client.ArtifactPath("dQw4w9WgXcQ", attemptA), []byte("ID3"), 0o644)
	}
	if _, err := client.Produce(context.Background(), "dQw4w9WgXcQ", attemptA); err != nil {
		t.Fatalf("Produce returned error: %v", err)
	}
	idx := slices.Index(exec.args[0], "--downloader")
	if idx < 0 || exec.args[0][idx+1] != "aria2c" {
		t.Fatalf("expected aria2c downloader, got %v", exec.args[0])
	}
}

func TestProduceFailsWithoutOutput(t *testing.T) {
	client := newClient(t, &stubExecutor{})
	_, err := client.Produce(context.Background(), "dQw4w9WgXcQ", attemptA)
	var prodErr *ytdlp.ProductionError
	if !errors.As(err, &prodErr) {
		t.Fatalf("expected ProductionError, got %v", err)
	}
	if prodErr.ContentID != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected content id %q", prodErr.ContentID)
	}
}

func TestProduceRejectsMalformedID(t *testing.T) {
	exec := &stubExecutor{}
	client := newClient(t, exec)
	if _, err := client.Produce(context.Background(), "../../etc/passwd", attemptA); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(exec.args) != 0 {
		t.Fatal("expected no tool invocation for malformed id")
	}
}

func TestResolveWithStubScript(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubScript("yt-dlp", "cat <<'JSON'\n"+videoJSON+"\nJSON\n"))
	client, err := ytdlp.New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	identity, err := client.Resolve(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if identity.ContentID != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected content id %q", identity.ContentID)
	}
}

func TestResolveStubScriptFailureIsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubScript("yt-dlp", "echo 'ERROR: [youtube] xyz: Video unavailable' >&2\nexit 1\n"))
	client, err := ytdlp.New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.Resolve(context.Background(), "https://www.youtube.com/watch?v=xyz")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}
