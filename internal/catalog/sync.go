package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/starford/atlas/internal/checksum"
)

// SyncStats summarises one Load.
type SyncStats struct {
	Files   int
	Updated int
	Removed int
}

// MultiDir returns the vault-relative directory holding the .ajson files.
func (c *Catalog) MultiDir() string {
	return path.Join(c.envDir, "multi")
}

// Load brings the catalog up to date with the .ajson files on disk:
//   - new or changed files are parsed and their entries replaced
//   - files removed from disk have their entries deleted
func (c *Catalog) Load(ctx context.Context) (SyncStats, error) {
	var stats SyncStats
	metas, err := c.vault.List(c.MultiDir(), ".ajson")
	if err != nil {
		return stats, fmt.Errorf("catalog: list %s: %w", c.MultiDir(), err)
	}
	stats.Files = len(metas)

	known, err := c.sourceChecksums(ctx)
	if err != nil {
		return stats, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if prev, ok := known[m.Path]; ok && prev == m.Checksum {
			continue
		}

		data, err := c.vault.Read(m.Path)
		if err != nil {
			c.logger.Warn("catalog: read failed", slog.String("file", m.Path), slog.String("error", err.Error()))
			continue
		}
		if !checksum.Changed(known[m.Path], data) {
			continue
		}
		if err := c.syncFile(ctx, m.Path, data); err != nil {
			c.logger.Warn("catalog: sync failed", slog.String("file", m.Path), slog.String("error", err.Error()))
			continue
		}
		stats.Updated++
		c.logger.Debug("catalog: synced", slog.String("file", m.Path))
	}

	for file := range known {
		if _, ok := disk[file]; ok {
			continue
		}
		if err := c.removeFile(ctx, file); err != nil {
			c.logger.Warn("catalog: remove failed", slog.String("file", file), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
	}
	return stats, nil
}

func (c *Catalog) sourceChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := c.conn.QueryContext(ctx, `SELECT file, checksum FROM sources`)
	if err != nil {
		return nil, fmt.Errorf("catalog: source checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var f, cs string
		if err := rows.Scan(&f, &cs); err != nil {
			return nil, err
		}
		out[f] = cs
	}
	return out, rows.Err()
}

// syncFile replaces every row sourced from file within a transaction.
func (c *Catalog) syncFile(ctx context.Context, file string, data []byte) error {
	entries, skipped := parseAJSON(data)
	if skipped > 0 {
		c.logger.Warn("catalog: skipped malformed entries", slog.String("file", file), slog.Int("count", skipped))
	}

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := deleteFileRows(ctx, tx, file); err != nil {
		return err
	}

	noteStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO notes (path, path_key, model, dims, embedding, source_file)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("catalog: prepare note insert: %w", err)
	}
	defer noteStmt.Close()

	blockStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO blocks (key, path, model, dims, embedding, source_file)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("catalog: prepare block insert: %w", err)
	}
	defer blockStmt.Close()

	for _, e := range entries {
		rows := e.Embeddings
		if len(rows) == 0 {
			rows = []embedding{{}}
		}
		for _, emb := range rows {
			var blob []byte
			if len(emb.Vec) > 0 {
				blob, err = sqlite_vec.SerializeFloat32(emb.Vec)
				if err != nil {
					return fmt.Errorf("catalog: serialize %s: %w", e.Key, err)
				}
			}
			switch e.Kind {
			case kindSource:
				_, err = noteStmt.ExecContext(ctx, e.Path, pathKey(e.Path), emb.Model, len(emb.Vec), blob, file)
			case kindBlock:
				_, err = blockStmt.ExecContext(ctx, e.Key, e.Path, emb.Model, len(emb.Vec), blob, file)
			}
			if err != nil {
				return fmt.Errorf("catalog: insert %s: %w", e.Key, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sources (file, checksum, synced_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(file) DO UPDATE SET checksum = excluded.checksum, synced_at = excluded.synced_at`,
		file, checksum.Sum(data))
	if err != nil {
		return fmt.Errorf("catalog: record source: %w", err)
	}
	return tx.Commit()
}

func (c *Catalog) removeFile(ctx context.Context, file string) error {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteFileRows(ctx, tx, file); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE file = ?`, file); err != nil {
		return fmt.Errorf("catalog: delete source: %w", err)
	}
	return tx.Commit()
}

func deleteFileRows(ctx context.Context, tx *sql.Tx, file string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE source_file = ?`, file); err != nil {
		return fmt.Errorf("catalog: delete notes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE source_file = ?`, file); err != nil {
		return fmt.Errorf("catalog: delete blocks: %w", err)
	}
	return nil
}

// pathKey is the case-insensitive lookup key for a note path.
func pathKey(p string) string {
	return strings.ToLower(NormalizePath(p))
}

// NormalizePath strips surrounding quotes and whitespace and converts
// backslashes to forward slashes.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.Trim(p, `"'`)
	return strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
}
