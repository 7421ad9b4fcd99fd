// Package testutil provides shared test helpers for setting up vaults and
// Smart Connections data.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/atlas/internal/storage"
)

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteFile writes content to rel under root, creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestDBPath returns a database file path inside a temporary directory.
func TestDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "atlas-test.db")
}

// SourceLine renders one Smart Connections .ajson line for a note with a
// single embedding.
func SourceLine(t *testing.T, path, model string, vec []float32) string {
	t.Helper()
	return line(t, "smart_sources:"+path, path, model, vec)
}

// BlockLine renders one .ajson line for a block of a note.
func BlockLine(t *testing.T, key, model string, vec []float32) string {
	t.Helper()
	return line(t, "smart_blocks:"+key, "", model, vec)
}

func line(t *testing.T, key, path, model string, vec []float32) string {
	t.Helper()
	val := map[string]any{
		"embeddings": map[string]any{model: map[string]any{"vec": vec}},
	}
	if path != "" {
		val["path"] = path
	}
	k, err := json.Marshal(key)
	if err != nil {
		t.Fatal(err)
	}
	v, err := json.Marshal(val)
	if err != nil {
		t.Fatal(err)
	}
	return string(k) + ": " + string(v) + ",\n"
}
