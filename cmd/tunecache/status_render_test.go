package main

import (
	"strings"
	"testing"

	"tunecache/internal/api"
)

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Daemon", statusOK, "running", false)
	if !strings.Contains(line, "Daemon:") || !strings.Contains(line, "[OK] running") {
		t.Fatalf("unexpected line %q", line)
	}
	colored := renderStatusLine("Daemon", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected colored line, got %q", colored)
	}
}

func TestDependencyLines(t *testing.T) {
	lines := dependencyLines([]api.DependencyStatus{
		{Name: "yt-dlp", Command: "/usr/bin/yt-dlp", Available: true},
		{Name: "aria2c", Optional: true, Detail: "not found"},
		{Name: "ffmpeg", Detail: "not found"},
	}, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK] /usr/bin/yt-dlp") {
		t.Fatalf("unexpected available line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARN]") {
		t.Fatalf("expected optional dependency warning, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[ERROR] not found") {
		t.Fatalf("expected required dependency error, got %q", lines[2])
	}
}

func TestRenderRecordTable(t *testing.T) {
	out := renderRecordTable([]api.Record{
		{ContentID: "abc", Title: "Song", State: "completed", Attempts: 1, ArtifactURL: "https://files.example/abc.mp3"},
		{ContentID: "def", Title: "Broken", State: "failed", Attempts: 2, ErrorDetail: "download failed"},
	})
	for _, want := range []string{"Content ID", "https://files.example/abc.mp3", "download failed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected table to contain %q:\n%s", want, out)
		}
	}
}
