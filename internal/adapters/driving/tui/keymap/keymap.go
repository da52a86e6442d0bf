// Package keymap defines keybindings for the interactive query session.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the keybindings of the question loop.
type KeyMap struct {
	// Quit exits the session.
	Quit key.Binding

	// Ask submits the typed question.
	Ask key.Binding

	// Back returns from the sources to the question input.
	Back key.Binding

	// Up navigates up in the source list.
	Up key.Binding

	// Down navigates down in the source list.
	Down key.Binding

	// NewQuestion clears the input and starts a new question.
	NewQuestion key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Ask: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "ask"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		NewQuestion: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new question"),
		),
	}
}

// InputHelp returns the keybindings shown while typing a question.
func (k *KeyMap) InputHelp() []key.Binding {
	return []key.Binding{k.Ask, k.Back}
}

// SourcesHelp returns the keybindings shown while browsing sources.
func (k *KeyMap) SourcesHelp() []key.Binding {
	return []key.Binding{k.NewQuestion, k.Up, k.Down, k.Quit}
}
