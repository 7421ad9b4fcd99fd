package mcpserver

import (
	"strings"

	"github.com/starford/atlas/internal/render"
)

const placeholdersURI = "atlas://moc-placeholders"

// PlaceholderReference lists every template placeholder as Markdown.
func PlaceholderReference() string {
	var sb strings.Builder
	sb.WriteString("# Atlas MOC Template Placeholders\n\n")
	sb.WriteString("Each token is replaced once per render; tokens the template does not use are ignored.\n\n")
	for _, tok := range render.Tokens() {
		sb.WriteString("- `" + tok + "`\n")
	}
	return sb.String()
}
