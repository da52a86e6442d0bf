// Package styles provides the colour theme and lipgloss styles for the
// interactive query session.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colour palette of the terminal UI.
type Theme struct {
	// Primary is the main accent colour, used for headers and the
	// selected source.
	Primary lipgloss.Color

	// Secondary is the accent for sub-headers (answer, sources).
	Secondary lipgloss.Color

	// Foreground is the default text colour.
	Foreground lipgloss.Color

	// Muted is for scores, previews and hints.
	Muted lipgloss.Color

	// Error indicates failed queries.
	Error lipgloss.Color

	// Border frames the input field and the answer pane.
	Border lipgloss.Color

	// Background backs the status bar.
	Background lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    lipgloss.Color("#2563EB"), // Blue
		Secondary:  lipgloss.Color("#0D9488"), // Teal
		Foreground: lipgloss.Color("#E2E8F0"), // Light gray
		Muted:      lipgloss.Color("#64748B"), // Slate
		Error:      lipgloss.Color("#F87171"), // Red
		Border:     lipgloss.Color("#334155"), // Border gray
		Background: lipgloss.Color("#0F172A"), // Near black
	}
}

// Styles contains pre-configured lipgloss styles built from a theme.
type Styles struct {
	theme *Theme

	// Title style for the application header.
	Title lipgloss.Style

	// Subtitle style for section headers.
	Subtitle lipgloss.Style

	// Normal style for regular text.
	Normal lipgloss.Style

	// Muted style for scores, previews and key hints.
	Muted lipgloss.Style

	// Selected style for the highlighted source.
	Selected lipgloss.Style

	// Error style for error messages.
	Error lipgloss.Style

	// InputField style for the question input.
	InputField lipgloss.Style

	// Answer style frames the synthesised answer.
	Answer lipgloss.Style

	// StatusBar style for the bottom bar.
	StatusBar lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Subtitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Normal: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Foreground).
			Background(theme.Primary),

		Error: lipgloss.NewStyle().
			Foreground(theme.Error),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Answer: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Foreground(theme.Foreground).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Background(theme.Background).
			Padding(0, 1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}
