// Package input provides the question input component.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cisbeo/scorpius-rag/internal/adapters/driving/tui/styles"
)

// QuestionInput wraps a bubbles textinput for typing questions.
type QuestionInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int
}

// NewQuestionInput creates a new question input component.
func NewQuestionInput(s *styles.Styles) *QuestionInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Posez votre question..."
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 60

	return &QuestionInput{
		textinput: ti,
		styles:    s,
		width:     60,
	}
}

// Init initialises the input.
func (q *QuestionInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (q *QuestionInput) Update(msg tea.Msg) (*QuestionInput, tea.Cmd) {
	var cmd tea.Cmd
	q.textinput, cmd = q.textinput.Update(msg)
	return q, cmd
}

// View renders the labelled input field.
func (q *QuestionInput) View() string {
	label := q.styles.Title.Render("Question: ")
	field := q.styles.InputField.Render(q.textinput.View())
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Value returns the typed question.
func (q *QuestionInput) Value() string {
	return q.textinput.Value()
}

// SetValue sets the typed question.
func (q *QuestionInput) SetValue(value string) {
	q.textinput.SetValue(value)
}

// Focus gives the input keyboard focus.
func (q *QuestionInput) Focus() tea.Cmd {
	return q.textinput.Focus()
}

// Blur removes keyboard focus.
func (q *QuestionInput) Blur() {
	q.textinput.Blur()
}

// Focused reports whether the input has keyboard focus.
func (q *QuestionInput) Focused() bool {
	return q.textinput.Focused()
}

// SetWidth sets the width of the input, reserving room for the label.
func (q *QuestionInput) SetWidth(width int) {
	q.width = width
	fieldWidth := width - 14
	if fieldWidth < 20 {
		fieldWidth = 20
	}
	q.textinput.Width = fieldWidth
}

// Width returns the current width.
func (q *QuestionInput) Width() int {
	return q.width
}
