// Package filesystem provides the app.FileStore implementation backed by
// the local filesystem. Uploaded wish images live under a fixed root in
// per-wish directories (<root>/wishes/<id>/...), which lets the reclamation
// sweep drop everything a wish owns with one recursive delete.
package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hareeshworks/wishaday/internal/app"
)

var _ app.FileStore = (*MediaStore)(nil)

// MediaStore implements app.FileStore rooted at a single upload directory.
type MediaStore struct {
	root string
}

// New returns a filesystem-backed media store rooted at dir, creating the
// wishes subtree if needed.
func New(root string) (*MediaStore, error) {
	if root == "" {
		return nil, errors.New("media root must not be empty")
	}
	if err := os.MkdirAll(filepath.Join(root, "wishes"), 0o700); err != nil {
		return nil, err
	}
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, errors.New("media root is not a directory")
	}
	return &MediaStore{root: root}, nil
}

// Root returns the upload root, for mounting health checks against.
func (m *MediaStore) Root() string { return m.root }

// WishDir returns the directory holding every file for the given wish ID.
func (m *MediaStore) WishDir(id int64) string {
	return filepath.Join(m.root, "wishes", strconv.FormatInt(id, 10))
}

// RemoveAll deletes a directory tree under the media root. An absent path is
// success; a path escaping the root is rejected.
func (m *MediaStore) RemoveAll(path string) error {
	if err := m.inRoot(path); err != nil {
		return err
	}
	// os.RemoveAll returns nil when the path does not exist.
	return os.RemoveAll(path)
}

// Exists reports whether the image at the given root-relative path is
// present on disk. Malformed paths report absent.
func (m *MediaStore) Exists(relPath string) bool {
	if relPath == "" || filepath.IsAbs(relPath) {
		return false
	}
	full := filepath.Join(m.root, filepath.FromSlash(relPath))
	if m.inRoot(full) != nil {
		return false
	}
	fi, err := os.Stat(full)
	return err == nil && !fi.IsDir()
}

// inRoot rejects paths that resolve outside the media root.
func (m *MediaStore) inRoot(path string) error {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.New("path escapes media root")
	}
	return nil
}
