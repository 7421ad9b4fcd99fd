package catalog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	sourcePrefix = "smart_sources:"
	blockPrefix  = "smart_blocks:"
)

// entryKind distinguishes whole-note entries from block entries.
type entryKind int

const (
	kindSource entryKind = iota
	kindBlock
)

// embedding is one model's vector for an entry.
type embedding struct {
	Model string
	Vec   []float32
}

// entry is a single Smart Connections record after parsing.
type entry struct {
	Kind       entryKind
	Key        string // text after the collection prefix
	Path       string // vault-relative note path
	Embeddings []embedding
}

type rawEntry struct {
	Path       string `json:"path"`
	Embeddings map[string]struct {
		Vec []float32 `json:"vec"`
	} `json:"embeddings"`
}

// parseAJSON decodes an append-only JSON file: one `"key": value,` pair per
// line. A later line for the same key replaces the earlier one and a null
// value removes it. Lines that do not decode are returned as skipped.
func parseAJSON(data []byte) (entries []entry, skipped int) {
	latest := make(map[string]json.RawMessage)
	var order []string

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		line = strings.TrimSuffix(line, ",")
		if line == "" {
			continue
		}
		var pair map[string]json.RawMessage
		if err := json.Unmarshal([]byte("{"+line+"}"), &pair); err != nil {
			skipped++
			continue
		}
		for k, v := range pair {
			if _, seen := latest[k]; !seen {
				order = append(order, k)
			}
			latest[k] = v
		}
	}

	for _, k := range order {
		raw := latest[k]
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		e, err := decodeEntry(k, raw)
		if err != nil {
			skipped++
			continue
		}
		if e != nil {
			entries = append(entries, *e)
		}
	}
	return entries, skipped
}

func decodeEntry(key string, raw json.RawMessage) (*entry, error) {
	var e entry
	switch {
	case strings.HasPrefix(key, sourcePrefix):
		e.Kind = kindSource
		e.Key = strings.TrimPrefix(key, sourcePrefix)
	case strings.HasPrefix(key, blockPrefix):
		e.Kind = kindBlock
		e.Key = strings.TrimPrefix(key, blockPrefix)
	default:
		return nil, nil
	}

	var r rawEntry
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}

	e.Path = r.Path
	if e.Path == "" {
		e.Path, _, _ = strings.Cut(e.Key, "#")
	}
	if e.Kind == kindBlock {
		e.Path, _, _ = strings.Cut(e.Path, "#")
	}

	models := make([]string, 0, len(r.Embeddings))
	for m := range r.Embeddings {
		models = append(models, m)
	}
	sort.Strings(models)
	for _, m := range models {
		if vec := r.Embeddings[m].Vec; len(vec) > 0 {
			e.Embeddings = append(e.Embeddings, embedding{Model: m, Vec: vec})
		}
	}
	return &e, nil
}
