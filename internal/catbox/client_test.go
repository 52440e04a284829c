package catbox_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"tunecache/internal/catbox"
	"tunecache/internal/services"
	"tunecache/internal/testsupport"
)

func newClient(t *testing.T, handler http.HandlerFunc) *catbox.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Publisher.Endpoint = server.URL
	client, err := catbox.New(cfg, catbox.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func writeArtifact(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dQw4w9WgXcQ.mp3")
	testsupport.WriteAudio(t, path, 2048)
	return path
}

func TestPublishSendsMultipartForm(t *testing.T) {
	var (
		gotReqType string
		gotName    string
		gotSize    int
	)
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		gotReqType = r.FormValue("reqtype")
		file, header, err := r.FormFile("fileToUpload")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName = header.Filename
		gotSize = len(data)
		_, _ = io.WriteString(w, "https://files.catbox.moe/abc123.mp3\n")
	})

	url, err := client.Publish(context.Background(), writeArtifact(t))
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if url != "https://files.catbox.moe/abc123.mp3" {
		t.Fatalf("unexpected url %q", url)
	}
	if gotReqType != "fileupload" || gotName != "dQw4w9WgXcQ.mp3" || gotSize != 2048 {
		t.Fatalf("unexpected upload: reqtype=%q name=%q size=%d", gotReqType, gotName, gotSize)
	}
}

func TestPublishRejectsNonURLBody(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "Internal error: storage full")
	})

	_, err := client.Publish(context.Background(), writeArtifact(t))
	var pubErr *catbox.PublicationError
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected PublicationError, got %v", err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool classification, got %v", err)
	}
}

func TestPublishRejectsErrorStatus(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "https://looks-like-a-url.example", http.StatusBadGateway)
	})
	if _, err := client.Publish(context.Background(), writeArtifact(t)); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestPublishMissingFile(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server must not be called for a missing file")
	})
	_, err := client.Publish(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
