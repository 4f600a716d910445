package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with exactly size bytes of a rolling
// alphabet pattern, so fixtures compress realistically and truncation
// bugs surface as size mismatches. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	WriteText(t, path, string(data))
}

// WriteText writes string content to path, creating parents.
func WriteText(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
