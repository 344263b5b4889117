package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrPromptCancelled is returned when the user leaves a prompt with Esc or
// Ctrl+C.
var ErrPromptCancelled = errors.New("prompt cancelled")

type promptModel struct {
	question  string
	input     textinput.Model
	answered  bool
	cancelled bool
}

func newPromptModel(question, initial string) *promptModel {
	in := textinput.New()
	in.SetValue(initial)
	in.CursorEnd()
	in.Focus()
	in.Prompt = "> "
	in.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	return &promptModel{question: question, input: in}
}

func (m *promptModel) Init() tea.Cmd { return textinput.Blink }

func (m *promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.answered = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *promptModel) View() string {
	if m.answered || m.cancelled {
		return ""
	}
	q := lipgloss.NewStyle().Bold(true).Render(m.question)
	return q + "\n" + m.input.View() + "\n"
}

// TextPrompter asks questions with an editable text field prefilled with
// the suggested value.
type TextPrompter struct {
	In  io.Reader
	Out io.Writer
}

func (p TextPrompter) Prompt(ctx context.Context, question, initial string) (string, error) {
	model := newPromptModel(question, initial)
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.In != nil {
		opts = append(opts, tea.WithInput(p.In))
	}
	if p.Out != nil {
		opts = append(opts, tea.WithOutput(p.Out))
	}
	if _, err := tea.NewProgram(model, opts...).Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", err
	}
	if model.cancelled {
		return "", ErrPromptCancelled
	}
	return strings.TrimSpace(model.input.Value()), nil
}

// LinePrompter reads one answer per line. An empty line accepts initial.
// It serves input that is not a terminal.
type LinePrompter struct {
	In  *bufio.Reader
	Out io.Writer
}

func (p LinePrompter) Prompt(ctx context.Context, question, initial string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if initial != "" {
		fmt.Fprintf(p.Out, "%s [%s]: ", question, initial)
	} else {
		fmt.Fprintf(p.Out, "%s: ", question)
	}
	line, err := p.In.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", ErrPromptCancelled
		}
		return "", err
	}
	if answer := strings.TrimSpace(line); answer != "" {
		return answer, nil
	}
	return initial, nil
}
