package components

import (
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/marketly/marketly/internal/tui/styles"
)

// InputResult is what an InputModal did with a message
type InputResult int

const (
	InputEditing InputResult = iota
	InputSubmitted
	InputCancelled
)

// InputModal is a single-line text prompt, used for the list filters
type InputModal struct {
	visible bool
	title   string
	input   textinput.Model
}

// NewInputModal creates a new input modal
func NewInputModal() InputModal {
	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.CharLimit = 80
	ti.Width = 30
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle
	ti.Cursor.SetMode(cursor.CursorStatic)

	return InputModal{
		input: ti,
	}
}

// Show displays the modal with a title and initial value
func (m *InputModal) Show(title, value string) {
	m.visible = true
	m.title = title
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

// Hide dismisses the modal
func (m *InputModal) Hide() {
	m.visible = false
	m.input.Blur()
}

// IsVisible returns whether the modal is shown
func (m InputModal) IsVisible() bool {
	return m.visible
}

// Value returns the current input value
func (m InputModal) Value() string {
	return m.input.Value()
}

// Update handles input events. Enter submits and esc cancels; both hide the modal.
func (m InputModal) Update(msg tea.Msg) (InputModal, tea.Cmd, InputResult) {
	if !m.visible {
		return m, nil, InputEditing
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			m.Hide()
			return m, nil, InputSubmitted
		case "esc":
			m.Hide()
			return m, nil, InputCancelled
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd, InputEditing
}

// View renders the prompt on one line
func (m InputModal) View(width int) string {
	if !m.visible {
		return ""
	}

	title := styles.DimStyle.Render(m.title + " ")
	return lipgloss.NewStyle().
		Width(width).
		Render(title + m.input.View())
}
