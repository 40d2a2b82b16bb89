package testutil

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// WriteBundle builds a .qvf bundle in a temp directory from entry name to
// content and returns its path. Entries are written in sorted order so
// fixture bundles are reproducible.
func WriteBundle(t testing.TB, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "app.qvf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create bundle: %v", err)
	}
	defer f.Close()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create bundle entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			t.Fatalf("write bundle entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close bundle: %v", err)
	}
	return path
}

// WriteRawFile writes arbitrary bytes to a temp file and returns its
// path. Tests use it for bundles that are not valid archives.
func WriteRawFile(t testing.TB, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
