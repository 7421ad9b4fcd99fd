// Package console renders pipeline progress for a person at a terminal.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Reporter receives user-facing progress and failure messages.
type Reporter interface {
	Init(version string)
	Loaded(notes, blocks int)
	Processing(path string)
	FindingConnections(path string)
	ConnectionsFound()
	Connection(name string, score float64)
	ConnectionSkipped(name string)
	Generating(provider string)
	ServiceError(text string)
	InvalidData(text string)
	Success(path string)
	SaveError(path string, err error)
	MissingLinks(links []string)
	Error(msg string)
	Warning(msg string)
}

// Console is a Reporter that writes styled lines to a terminal.
type Console struct {
	w io.Writer

	bold    lipgloss.Style
	gray    lipgloss.Style
	cyan    lipgloss.Style
	green   lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	link    lipgloss.Style
	tick    string
	cross   string
	warning string
}

// New creates a Console writing to w. Colour is enabled only when w is a
// terminal that supports it.
func New(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	c := &Console{
		w:     w,
		bold:  r.NewStyle().Bold(true),
		gray:  r.NewStyle().Foreground(lipgloss.Color("8")),
		cyan:  r.NewStyle().Foreground(lipgloss.Color("14")),
		green: r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		warn:  r.NewStyle().Foreground(lipgloss.Color("11")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		link:  r.NewStyle().Foreground(lipgloss.Color("8")).Underline(true),
	}
	c.tick = c.green.Render("✔")
	c.cross = c.fail.Render("✖")
	c.warning = c.warn.Render("⚠")
	return c
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.w, format, args...)
}

func (c *Console) Init(version string) {
	c.printf("%s %s\n%s\n", c.bold.Render("✨ Atlas"), c.gray.Render(version), strings.Repeat("-", 30))
}

func (c *Console) Loaded(notes, blocks int) {
	c.printf("📂 Knowledge Base: %s notes, %s blocks.\n",
		c.bold.Render(fmt.Sprint(notes)), c.bold.Render(fmt.Sprint(blocks)))
}

func (c *Console) Processing(path string) {
	c.printf("\n📄 %s\n   %s\n", c.bold.Render("Now Processing"), c.gray.Render(path))
}

func (c *Console) FindingConnections(path string) {
	c.printf("\n%s %s...\n", c.cyan.Render("🔍 Finding connections for"), c.gray.Render(path))
}

func (c *Console) ConnectionsFound() {
	c.printf("\n🔗 %s\n", c.bold.Render("Connections Found"))
}

func (c *Console) Connection(name string, score float64) {
	c.printf("  %s %s %s\n", c.gray.Render("└─"), name, c.gray.Render(fmt.Sprintf("(%.2f)", score)))
}

func (c *Console) ConnectionSkipped(name string) {
	c.printf("  %s %s\n", c.gray.Render("└─"),
		c.warn.Render(fmt.Sprintf("Could not read content for %q. Skipping.", name)))
}

func (c *Console) Generating(provider string) {
	c.printf("\n%s\n", c.cyan.Render("⚙️ Generating Map of Content with "+provider+"..."))
}

func (c *Console) ServiceError(text string) {
	c.Error("The AI model returned an error.")
	c.printf("   %s\n", c.gray.Render(text))
}

func (c *Console) InvalidData(text string) {
	c.Error("The AI model returned invalid or unparsable data.")
	c.printf("   %s\n", c.gray.Render(text))
}

func (c *Console) Success(path string) {
	c.printf("\n%s\n   Map of Content saved to:\n   %s\n", c.green.Render("✅ Success!"), c.link.Render(path))
}

func (c *Console) SaveError(path string, err error) {
	c.Error("Failed to save file.")
	c.printf("   Path: %s\n   Reason: %s\n", c.gray.Render(path), c.gray.Render(err.Error()))
}

func (c *Console) MissingLinks(links []string) {
	c.Warning(fmt.Sprintf("%d required link(s) missing from the generated body:", len(links)))
	for _, l := range links {
		c.printf("  %s %s\n", c.gray.Render("└─"), l)
	}
}

func (c *Console) Error(msg string) {
	c.printf("\n%s %s: %s\n", c.cross, c.fail.Render("Error"), msg)
}

func (c *Console) Warning(msg string) {
	c.printf("%s %s: %s\n", c.warning, c.warn.Bold(true).Render("Warning"), msg)
}

var _ Reporter = (*Console)(nil)
