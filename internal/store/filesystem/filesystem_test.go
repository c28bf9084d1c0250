package filesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *MediaStore {
	t.Helper()
	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func writeFile(t *testing.T, path string, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestNewCreatesWishesSubtree(t *testing.T) {
	m := newTestStore(t)
	fi, err := os.Stat(filepath.Join(m.Root(), "wishes"))
	if err != nil || !fi.IsDir() {
		t.Fatalf("wishes subtree missing: %v", err)
	}
}

func TestNewEmptyRoot(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestWishDirLayout(t *testing.T) {
	m := newTestStore(t)
	want := filepath.Join(m.Root(), "wishes", "42")
	if got := m.WishDir(42); got != want {
		t.Fatalf("WishDir = %q, want %q", got, want)
	}
}

func TestRemoveAll(t *testing.T) {
	m := newTestStore(t)
	dir := m.WishDir(7)
	writeFile(t, filepath.Join(dir, "a.webp"), "img")
	writeFile(t, filepath.Join(dir, "b.webp"), "img")
	if err := m.RemoveAll(dir); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("dir survived: %v", err)
	}
	// Absent path is success, so a retried sweep stays clean.
	if err := m.RemoveAll(dir); err != nil {
		t.Fatalf("RemoveAll absent: %v", err)
	}
}

func TestRemoveAllRejectsEscape(t *testing.T) {
	m := newTestStore(t)
	outside := filepath.Join(m.Root(), "..", "victim")
	if err := m.RemoveAll(outside); err == nil {
		t.Fatal("expected error for path outside root")
	}
}

func TestExists(t *testing.T) {
	m := newTestStore(t)
	writeFile(t, filepath.Join(m.WishDir(3), "pic.webp"), "img")
	tests := []struct {
		rel  string
		want bool
	}{
		{"wishes/3/pic.webp", true},
		{"wishes/3/other.webp", false},
		{"wishes/3", false}, // directories are not images
		{"", false},
		{"../outside", false},
		{"/etc/passwd", false},
	}
	for _, tc := range tests {
		if got := m.Exists(tc.rel); got != tc.want {
			t.Errorf("Exists(%q) = %v, want %v", tc.rel, got, tc.want)
		}
	}
}
