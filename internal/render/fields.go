package render

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/atlas/internal/models"
	"github.com/starford/atlas/internal/prompt"
)

// Fixed header values for a freshly generated Map of Content.
const (
	DocType       = "MOC"
	Status        = "draft"
	Maturity      = "1"
	Priority      = "medium"
	LinkDensity   = "high"
	Granularity   = "index"
	AnswerUtility = "high"
)

// DefaultTags is used when the target note has no gs-tags.
var DefaultTags = []string{"MOC"}

const (
	idLayout   = "20060102-150405"
	dateLayout = "2006-01-02"
)

// document carries the per-render state placeholder values are computed from.
type document struct {
	in       Input
	now      time.Time
	reviewOn time.Time
}

func (d *document) today() string { return d.now.Format(dateLayout) }

func (d *document) frontMatter(key string) (models.Value, bool) {
	return d.in.FrontMatter.Lookup(key)
}

func (d *document) linkNames() []string {
	names := make([]string, len(d.in.Connections))
	for i, c := range d.in.Connections {
		names[i] = c.Note.Title()
	}
	return names
}

type placeholder struct {
	token string
	value func(d *document) string
}

func fixed(s string) func(*document) string {
	return func(*document) string { return s }
}

// placeholders is the enumerated substitution table.
var placeholders = []placeholder{
	{"{{id}}", func(d *document) string { return d.now.Format(idLayout) + "-" + DocType }},
	{"{{title}}", func(d *document) string { return scalar(d.in.Result.Title) }},
	{"{{type}}", fixed(DocType)},
	{"{{note_type}}", func(d *document) string { return scalar(d.in.Result.NoteType) }},
	{"{{source}}", func(d *document) string {
		return blockList([]string{prompt.Wikilink(d.in.TargetPath)})
	}},
	{"{{source_type}}", func(d *document) string { return scalar(d.in.Result.SourceType) }},
	{"{{subject}}", func(d *document) string {
		v, _ := d.frontMatter("subject")
		return scalar(v.String())
	}},
	{"{{gs_paper}}", func(d *document) string { return scalar(d.in.Result.GSPaper) }},
	{"{{gs-tags}}", func(d *document) string {
		if v, ok := d.frontMatter("gs-tags"); ok {
			return flowList(v.List())
		}
		return flowList(DefaultTags)
	}},
	{"{{keywords}}", func(d *document) string { return flowList(d.in.Result.KeyTerms) }},
	{"{{linked_pyqs}}", func(d *document) string { return flowList(d.in.Result.LinkedPYQs) }},
	{"{{status}}", fixed(Status)},
	{"{{maturity}}", fixed(Maturity)},
	{"{{priority}}", fixed(Priority)},
	{"{{link-density}}", fixed(LinkDensity)},
	{"{{granularity}}", fixed(Granularity)},
	{"{{answer_utility}}", fixed(AnswerUtility)},
	{"{{use_in_essay}}", func(d *document) string { return scalar(d.in.Result.UseInEssay) }},
	{"{{from_daily}}", (*document).today},
	{"{{revision_stage}}", func(d *document) string { return scalar(d.in.Result.RevisionStage) }},
	{"{{has_diagram}}", func(d *document) string { return d.in.Result.HasDiagram }},
	{"{{created}}", (*document).today},
	{"{{updated}}", (*document).today},
	{"{{sr1_date}}", (*document).today},
	{"{{sr2_due}}", func(d *document) string { return d.reviewOn.Format(dateLayout) }},
	{"{{related_links_yaml}}", func(d *document) string {
		names := d.linkNames()
		links := make([]string, len(names))
		for i, n := range names {
			links[i] = "[[" + n + "]]"
		}
		return blockList(links)
	}},
	{"{{related_links_body}}", func(d *document) string {
		var sb strings.Builder
		for i, n := range d.linkNames() {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString("- [[" + n + "]]")
		}
		return sb.String()
	}},
	{"{{core_idea}}", func(d *document) string { return d.in.Result.CoreIdea }},
	{"{{key_details}}", func(d *document) string { return d.in.Result.KeyDetails }},
	{"{{moc_body}}", func(d *document) string { return d.in.Result.Body }},
	{"{{flowchart_or_cause_effect}}", func(d *document) string { return d.in.Result.Flowchart }},
}

// scalar renders s as a YAML double-quoted scalar.
func scalar(s string) string {
	return emit(quoted(s))
}

func quoted(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s, Style: yaml.DoubleQuotedStyle}
}

func sequence(items []string, style yaml.Style) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: style}
	for _, item := range items {
		seq.Content = append(seq.Content, quoted(item))
	}
	return seq
}

func emit(n *yaml.Node) string {
	out, err := yaml.Marshal(n)
	if err != nil {
		// Only string scalars and sequences of them reach here.
		panic(fmt.Sprintf("render: emit yaml: %v", err))
	}
	return strings.TrimSuffix(string(out), "\n")
}

// flowList renders items as an inline YAML sequence of quoted strings,
// e.g. ["a", "b"]. An empty list renders as [].
func flowList(items []string) string {
	return emit(sequence(items, yaml.FlowStyle))
}

// blockList renders items as an indented YAML block sequence starting on a
// new line, for use directly after a "key:" in the template. An empty list
// renders as [].
func blockList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	var sb strings.Builder
	for _, line := range strings.Split(emit(sequence(items, 0)), "\n") {
		sb.WriteString("\n  ")
		sb.WriteString(line)
	}
	return sb.String()
}
