// Package status provides the status bar of the interactive session.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/cisbeo/scorpius-rag/internal/adapters/driving/tui/keymap"
	"github.com/cisbeo/scorpius-rag/internal/adapters/driving/tui/styles"
)

// State represents the current session state for display.
type State string

const (
	StateReady    State = "ready"
	StateAsking   State = "asking"
	StateError    State = "error"
	StateAnswered State = "answered"
)

// Bar displays the session state on the left and keybinding hints on the
// right.
type Bar struct {
	styles      *styles.Styles
	keymap      *keymap.KeyMap
	state       State
	message     string
	sourceCount int
	width       int
}

// NewBar creates a new status bar.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	padding := b.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return b.styles.StatusBar.Width(b.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

// renderLeft renders the state or the last message.
func (b *Bar) renderLeft() string {
	switch b.state {
	case StateAsking:
		return b.styles.Muted.Render("Recherche...")
	case StateError:
		if b.message != "" {
			return b.styles.Error.Render(fmt.Sprintf("Error: %s", b.message))
		}
		return b.styles.Error.Render("Error")
	case StateAnswered:
		return b.styles.Normal.Render(fmt.Sprintf("%d source(s)", b.sourceCount))
	case StateReady:
	}
	return b.styles.Muted.Render("Ready")
}

// renderRight renders the keybinding hints for the current state.
func (b *Bar) renderRight() string {
	var bindings []key.Binding
	if b.state == StateAnswered {
		bindings = b.keymap.SourcesHelp()
	} else {
		bindings = b.keymap.InputHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (b *Bar) SetState(state State) {
	b.state = state
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// SetMessage sets the message shown in the error state.
func (b *Bar) SetMessage(message string) {
	b.message = message
}

// SetSourceCount sets the number of retrieved sources.
func (b *Bar) SetSourceCount(count int) {
	b.sourceCount = count
}

// SetWidth sets the bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}
