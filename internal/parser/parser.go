// Package parser extracts the key-value header and wikilinks from Markdown notes.
package parser

import (
	"regexp"
	"strings"

	"github.com/starford/atlas/internal/models"
)

var (
	headerRe   = regexp.MustCompile(`(?s)\A---[ \t\r]*\n(.*?)\n---[ \t\r]*\n`)
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
)

// Extract splits a leading --- delimited header from text.
//
// Each header line of the form "key: value" becomes an entry; lines without a
// colon are skipped. A value wrapped in [ and ] is read as a comma separated
// list. When no header is present the mapping is empty and text is returned
// unchanged. Extract never fails.
func Extract(text string) (models.FrontMatter, string) {
	fm := models.FrontMatter{}
	loc := headerRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return fm, text
	}

	block := text[loc[2]:loc[3]]
	for _, line := range strings.Split(block, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		fm[key] = parseValue(strings.TrimSpace(value))
	}
	return fm, text[loc[1]:]
}

func parseValue(raw string) models.Value {
	if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		parts := strings.Split(raw[1:len(raw)-1], ",")
		items := make([]string, len(parts))
		for i, p := range parts {
			items[i] = strings.TrimSpace(p)
		}
		return models.Value{Items: items, IsList: true}
	}
	return models.Value{Text: raw}
}

// Links returns deduplicated wikilink targets in order of appearance,
// normalising aliases.
func Links(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		// [[Target|Alias]] → Target.
		target, _, _ := strings.Cut(m[1], "|")
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}
