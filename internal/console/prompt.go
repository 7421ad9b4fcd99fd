package console

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user aborts the prompt.
var ErrCancelled = errors.New("input cancelled")

var (
	questionStyle = lipgloss.NewStyle().Bold(true)
	caretStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// promptModel is the Bubble Tea model for a single-line question.
type promptModel struct {
	question  string
	input     textinput.Model
	done      bool
	cancelled bool
}

func newPromptModel(question string) promptModel {
	ti := textinput.New()
	ti.Prompt = caretStyle.Render("❯") + " "
	ti.Placeholder = "UPSC/GS2/Polity.md"
	ti.CharLimit = 0
	ti.Focus()
	return promptModel{question: question, input: ti}
}

func (m promptModel) Init() tea.Cmd { return textinput.Blink }

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return "\n" + questionStyle.Render("📝 "+m.question) + "\n" + m.input.View() + "\n"
}

// Value returns the entered path with backslashes converted to slashes.
func (m promptModel) Value() string {
	return strings.ReplaceAll(strings.TrimSpace(m.input.Value()), `\`, "/")
}

// Ask shows question and returns the single line the user enters.
func Ask(ctx context.Context, in io.Reader, out io.Writer, question string) (string, error) {
	p := tea.NewProgram(newPromptModel(question),
		tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	m := final.(promptModel)
	if m.cancelled {
		return "", ErrCancelled
	}
	return m.Value(), nil
}
