package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/atlas/internal/checksum"
	"github.com/starford/atlas/internal/models"
)

const tempPattern = ".atlas-tmp-*"

// FS implements Provider on a local directory.
type FS struct {
	root  string // absolute path
	files fs.FS
}

// NewFS creates an FS rooted at dir, which must already exist.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	switch {
	case err != nil:
		return nil, fmt.Errorf("storage: stat root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, files: os.DirFS(abs)}, nil
}

// Root returns the absolute root directory.
func (f *FS) Root() string { return f.root }

// rel cleans p into a slash-separated path under the root. Absolute paths
// and paths climbing out of the root are rejected.
func (f *FS) rel(p string) (string, error) {
	slashed := filepath.ToSlash(p)
	if path.IsAbs(slashed) || filepath.IsAbs(p) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", p)
	}
	cleaned := path.Clean(slashed)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("storage: path escapes root: %s", p)
	}
	return cleaned, nil
}

func (f *FS) abs(p string) (string, error) {
	r, err := f.rel(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.root, filepath.FromSlash(r)), nil
}

// List walks dir and returns metadata for every file ending in ext. Paths are
// relative to the root. A missing dir yields an empty result.
func (f *FS) List(dir, ext string) ([]models.FileMeta, error) {
	start, err := f.rel(dir)
	if err != nil {
		return nil, err
	}

	var out []models.FileMeta
	err = fs.WalkDir(f.files, start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := fs.ReadFile(f.files, p)
		if err != nil {
			return err
		}
		out = append(out, models.FileMeta{
			Path:      p,
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	return out, nil
}

// Read returns the raw bytes of a file.
func (f *FS) Read(p string) ([]byte, error) {
	abs, err := f.abs(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	return data, nil
}

// Exists reports whether a regular file exists at p.
func (f *FS) Exists(p string) bool {
	abs, err := f.abs(p)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

// Write replaces p with content, creating parent directories. Readers see
// either the old file or the new one, never a partial write.
func (f *FS) Write(p string, content []byte) error {
	abs, err := f.abs(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	return writeAtomic(abs, content)
}

// writeAtomic writes to a temp file beside dest, syncs it and renames it
// over dest.
func writeAtomic(dest string, content []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), tempPattern)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}

var _ Provider = (*FS)(nil)
