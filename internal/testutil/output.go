package testutil

import (
	"os"
	"sort"
	"testing"

	"github.com/spf13/afero"
)

// Files returns every regular file under root in fs, sorted. A missing root
// yields no files.
func Files(t testing.TB, fs afero.Fs, root string) []string {
	t.Helper()
	var out []string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("testutil: walking %s: %v", root, err)
	}
	sort.Strings(out)
	return out
}

// ReadFile returns the contents of path in fs, failing the test on error.
func ReadFile(t testing.TB, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("testutil: reading %s: %v", path, err)
	}
	return string(data)
}

// Snapshot returns the contents of every file under root in fs keyed by
// path.
func Snapshot(t testing.TB, fs afero.Fs, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, path := range Files(t, fs, root) {
		out[path] = ReadFile(t, fs, path)
	}
	return out
}
