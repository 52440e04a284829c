package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteAudio creates a stand-in MP3 of exactly size bytes at path: an "ID3"
// tag marker followed by filler. Sizes below the marker length are raised to it.
func WriteAudio(t testing.TB, path string, size int) {
	t.Helper()

	marker := []byte("ID3\x04\x00")
	if size < len(marker) {
		size = len(marker)
	}
	body := append(marker, bytes.Repeat([]byte{0xFF}, size-len(marker))...)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write audio %s: %v", path, err)
	}
}
