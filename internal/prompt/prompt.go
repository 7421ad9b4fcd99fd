// Package prompt compiles the synthesis request sent to the generative service.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/starford/atlas/internal/models"
)

//go:embed templates/moc.tmpl
var mocTemplateSource string

var mocTemplate = template.Must(template.New("moc_prompt").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(mocTemplateSource))

// Field documents one key of the JSON object the service must return.
type Field struct {
	Name        string
	Description string
}

// Fields is the output schema communicated to the service, in prompt order.
var Fields = []Field{
	{"title", "A concise and descriptive title for the MOC."},
	{"core_idea", "A brief, insightful paragraph explaining the overarching concept that connects all these notes."},
	{"key_details", "A more detailed explanation, organized into bullet points or short paragraphs, covering the key facets and relationships derived from the notes. " +
		"Either a string or a list whose items are strings or objects with `heading` and `content` keys. " +
		"Go beyond a simple summary and cover the deeper implications and relationships, suitable for UPSC level understanding."},
	{"body", "(Optional) Any additional comprehensive and analytical explanation that doesn't fit into `core_idea` or `key_details`."},
	{"flowchart_or_cause_effect", "(Optional) A simple flowchart or cause-and-effect chain in Mermaid syntax to visually represent the key relationships."},
	{"gs_paper", "The relevant GS Paper (e.g., GS1, GS2, GS3, GS4, Essay)."},
	{"linked_pyqs", "(Optional) A list of relevant previous year questions (PYQs)."},
	{"key_terms", "A list of key terms and concepts."},
	{"use_in_essay", "(Optional) A relevant essay idea or theme."},
	{"note_type", "(Optional) The type of note (e.g., concept, theme, event, rebellion)."},
	{"source_type", "(Optional) The source type (e.g., Book, CA, YT, Class)."},
	{"revision_stage", "(Optional) The revision stage (e.g., SR1-SR5)."},
	{"has_diagram", "(Optional) Boolean indicating if a diagram is present."},
}

type section struct {
	Title   string
	Content string
}

type templateData struct {
	Title       string
	Body        string
	Connections []section
	Fields      []Field
	Links       []string
}

// Wikilink returns the [[link]] form of a note path.
func Wikilink(path string) string {
	return "[[" + models.DisplayName(path) + "]]"
}

// RequiredLinks returns one wikilink per connection, in order.
func RequiredLinks(conns []models.Connection) []string {
	links := make([]string, len(conns))
	for i, c := range conns {
		links[i] = Wikilink(c.Note.Path)
	}
	return links
}

// Compile builds the prompt for target, whose header has already been split
// off into body, and its resolved connections. Note text is embedded in full.
func Compile(target models.Note, body string, conns []models.Connection) (string, error) {
	data := templateData{
		Title:       target.Title(),
		Body:        body,
		Connections: make([]section, len(conns)),
		Fields:      Fields,
		Links:       RequiredLinks(conns),
	}
	for i, c := range conns {
		data.Connections[i] = section{Title: c.Note.Title(), Content: c.Note.Content}
	}

	var sb strings.Builder
	if err := mocTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("prompt: render: %w", err)
	}
	return sb.String(), nil
}
