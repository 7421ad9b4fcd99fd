package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/atlas/internal/models"
)

// Counts reports how many notes and blocks the catalog holds.
type Counts struct {
	Notes  int `json:"notes"`
	Blocks int `json:"blocks"`
}

// Counts returns distinct note and block counts.
func (c *Catalog) Counts(ctx context.Context) (Counts, error) {
	var out Counts
	err := c.conn.QueryRowContext(ctx, `
		SELECT (SELECT count(DISTINCT path) FROM notes),
		       (SELECT count(DISTINCT key) FROM blocks)`).Scan(&out.Notes, &out.Blocks)
	if err != nil {
		return Counts{}, fmt.Errorf("catalog: counts: %w", err)
	}
	return out, nil
}

// Notes returns every known note path in lexical order.
func (c *Catalog) Notes(ctx context.Context) ([]string, error) {
	rows, err := c.conn.QueryContext(ctx, `SELECT DISTINCT path FROM notes ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("catalog: notes: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Lookup resolves p against the known notes ignoring case. It returns the
// stored spelling of the path.
func (c *Catalog) Lookup(ctx context.Context, p string) (string, bool, error) {
	var stored string
	err := c.conn.QueryRowContext(ctx,
		`SELECT path FROM notes WHERE path_key = ? ORDER BY path LIMIT 1`, pathKey(p)).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("catalog: lookup: %w", err)
	}
	return stored, true, nil
}

// ReadNote returns the content of a vault note.
func (c *Catalog) ReadNote(_ context.Context, p string) (string, error) {
	data, err := c.vault.Read(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Model returns the embedding model used for ranking: the configured one,
// else the lexicographically first model in the catalog.
func (c *Catalog) Model(ctx context.Context) (string, error) {
	if c.model != "" {
		return c.model, nil
	}
	var m sql.NullString
	err := c.conn.QueryRowContext(ctx,
		`SELECT min(model) FROM notes WHERE embedding IS NOT NULL`).Scan(&m)
	if err != nil {
		return "", fmt.Errorf("catalog: model: %w", err)
	}
	return m.String, nil
}

// FindSimilar ranks notes by cosine similarity to p, highest first. The note
// itself is excluded and only vectors of the same model and dimension are
// compared. A note without an embedding has no neighbours.
func (c *Catalog) FindSimilar(ctx context.Context, p string, limit int) ([]models.Similar, error) {
	model, err := c.Model(ctx)
	if err != nil {
		return nil, err
	}
	if model == "" || limit <= 0 {
		return nil, nil
	}

	rows, err := c.conn.QueryContext(ctx, `
		SELECT n.path, 1.0 - vec_distance_cosine(n.embedding, t.embedding) AS score
		FROM notes t
		JOIN notes n ON n.model = t.model AND n.dims = t.dims
		WHERE t.path = ? AND t.model = ?
		  AND t.embedding IS NOT NULL AND n.embedding IS NOT NULL
		  AND n.path != t.path
		ORDER BY score DESC, n.path
		LIMIT ?`, p, model, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: find similar: %w", err)
	}
	defer rows.Close()

	var out []models.Similar
	for rows.Next() {
		var s models.Similar
		if err := rows.Scan(&s.Path, &s.Score); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
