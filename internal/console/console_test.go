package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestConsole_Messages(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.Loaded(12, 40)
	c.Connection("B", 0.9)
	c.ConnectionSkipped("Old/broken")
	c.ServiceError("Error: blocked")
	c.SaveError("out/X.md", errors.New("disk full"))
	c.Success("out/Synthesis.md")

	out := buf.String()
	for _, want := range []string{
		"12 notes, 40 blocks",
		"B (0.90)",
		`Could not read content for "Old/broken". Skipping.`,
		"The AI model returned an error.",
		"Error: blocked",
		"Path: out/X.md",
		"Reason: disk full",
		"out/Synthesis.md",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Warning("careful")
	r.Connection("C", 0.7)
	r.MissingLinks([]string{"[[B]]", "[[C]]"})

	if got := strings.Join(r.Kinds(), ","); got != "warning,connection,missing_links" {
		t.Errorf("kinds = %s", got)
	}
	if r.Text("connection") != "C (0.70)" {
		t.Errorf("connection text = %q", r.Text("connection"))
	}
	if !r.Has("missing_links") || r.Has("success") {
		t.Error("Has reported the wrong events")
	}
}

func TestPromptModel_Enter(t *testing.T) {
	m := newPromptModel("path?")
	m.input.SetValue(` UPSC\GS2\Polity.md `)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	pm := next.(promptModel)
	if !pm.done || pm.cancelled {
		t.Fatalf("state = %+v", pm)
	}
	if cmd == nil {
		t.Error("enter should quit the program")
	}
	if got := pm.Value(); got != "UPSC/GS2/Polity.md" {
		t.Errorf("Value = %q", got)
	}
	if pm.View() != "" {
		t.Error("finished prompt should render nothing")
	}
}

func TestPromptModel_Cancel(t *testing.T) {
	next, _ := newPromptModel("path?").Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !next.(promptModel).cancelled {
		t.Error("ctrl+c should cancel")
	}
}

func TestPromptModel_ViewShowsQuestion(t *testing.T) {
	if v := newPromptModel("Which note?").View(); !strings.Contains(v, "Which note?") {
		t.Errorf("view = %q", v)
	}
}
