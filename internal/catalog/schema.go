// Package catalog caches Smart Connections embeddings in SQLite and ranks
// related notes with sqlite-vec.
package catalog

import (
	"database/sql"
	"fmt"
	"log/slog"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/atlas/internal/storage"
)

func init() {
	sqlite_vec.Auto()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sources (
	file      TEXT PRIMARY KEY,
	checksum  TEXT NOT NULL DEFAULT '',
	synced_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notes (
	path        TEXT NOT NULL,
	path_key    TEXT NOT NULL,
	model       TEXT NOT NULL DEFAULT '',
	dims        INTEGER NOT NULL DEFAULT 0,
	embedding   BLOB,
	source_file TEXT NOT NULL,
	PRIMARY KEY (path, model)
);

CREATE TABLE IF NOT EXISTS blocks (
	key         TEXT NOT NULL,
	path        TEXT NOT NULL,
	model       TEXT NOT NULL DEFAULT '',
	dims        INTEGER NOT NULL DEFAULT 0,
	embedding   BLOB,
	source_file TEXT NOT NULL,
	PRIMARY KEY (key, model)
);

CREATE INDEX IF NOT EXISTS idx_notes_key ON notes(path_key);
CREATE INDEX IF NOT EXISTS idx_notes_source ON notes(source_file);
CREATE INDEX IF NOT EXISTS idx_blocks_source ON blocks(source_file);
`

// DefaultEnvDir is the Smart Connections data directory inside a vault.
const DefaultEnvDir = ".smart-env"

// Catalog is the similarity collaborator backed by SQLite.
type Catalog struct {
	conn   *sql.DB
	vault  storage.Provider
	envDir string
	model  string
	logger *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithModel pins the embedding model used for ranking.
func WithModel(model string) Option {
	return func(c *Catalog) { c.model = model }
}

// WithEnvDir overrides the vault-relative Smart Connections directory.
func WithEnvDir(dir string) Option {
	return func(c *Catalog) {
		if dir != "" {
			c.envDir = dir
		}
	}
}

// WithLogger sets the logger used during sync.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// Open opens (or creates) the catalog database at dsn. Note content is read
// through vault.
func Open(dsn string, vault storage.Provider, opts ...Option) (*Catalog, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	c := &Catalog{
		conn:   conn,
		vault:  vault,
		envDir: DefaultEnvDir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	return c.conn.Close()
}
