package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteMetadata places a recorder metadata document at the config's
// metadata path and returns that path.
func WriteMetadata(t testing.TB, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "metadata.json")
	WriteFile(t, path, content)
	return path
}
