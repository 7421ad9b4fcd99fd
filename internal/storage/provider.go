// Package storage defines the file-system abstraction over the vault and the
// output directory.
package storage

import "github.com/starford/atlas/internal/models"

// Provider is the interface for rooted file operations.
type Provider interface {
	// List returns metadata for every file under dir whose name ends in ext.
	List(dir, ext string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
	// Root returns the absolute directory all paths are relative to.
	Root() string
}
