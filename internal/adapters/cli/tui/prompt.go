package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// PromptModel asks for a single line of input
type PromptModel struct {
	title     string
	input     textinput.Model
	validate  func(string) error
	value     string
	cancelled bool
	err       error
}

// NewPromptModel creates a prompt. validate may be nil; when it returns an
// error the value is not accepted and the error is shown under the input.
func NewPromptModel(title, placeholder string, validate func(string) error) PromptModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 512
	ti.Width = 60
	ti.Prompt = "> "
	ti.Focus()

	return PromptModel{title: title, input: ti, validate: validate}
}

func (m PromptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m PromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			value := strings.TrimSpace(m.input.Value())
			if value == "" {
				return m, nil
			}
			if m.validate != nil {
				if err := m.validate(value); err != nil {
					m.err = err
					return m, nil
				}
			}
			m.value = value
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.err = nil
	return m, cmd
}

func (m PromptModel) View() string {
	s := titleStyle.Render("? "+m.title) + "\n\n" + m.input.View() + "\n"
	if m.err != nil {
		s += errorStyle.Render(m.err.Error()) + "\n"
	}
	s += "\n" + hintStyle.Render("(enter to confirm, esc to cancel)") + "\n"
	return s
}

// Value returns the accepted input, empty if cancelled
func (m PromptModel) Value() string {
	if m.cancelled {
		return ""
	}
	return m.value
}

// RunPrompt displays the prompt and returns the entered value, empty if cancelled
func RunPrompt(title, placeholder string, validate func(string) error) (string, error) {
	p := tea.NewProgram(NewPromptModel(title, placeholder, validate))

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	return finalModel.(PromptModel).Value(), nil
}
