// Package tui provides the interactive question loop as a Bubbletea
// program. It is a driving adapter over the query service: the user types
// a question, the answer and its sources render in place, and fresh query
// settings arrive as messages when the config file changes on disk.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cisbeo/scorpius-rag/internal/adapters/driving/tui/components/input"
	"github.com/cisbeo/scorpius-rag/internal/adapters/driving/tui/components/list"
	"github.com/cisbeo/scorpius-rag/internal/adapters/driving/tui/components/status"
	"github.com/cisbeo/scorpius-rag/internal/adapters/driving/tui/keymap"
	"github.com/cisbeo/scorpius-rag/internal/adapters/driving/tui/messages"
	"github.com/cisbeo/scorpius-rag/internal/adapters/driving/tui/styles"
	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driving"
)

// App is the interactive session model following the Elm architecture.
type App struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	list      *list.SourceList
	statusbar *status.Bar

	queries driving.QueryService
	ctx     context.Context
	opts    domain.QueryOptions

	answer       string
	subQuestions []string
	err          error

	width      int
	height     int
	ready      bool
	focusInput bool // true = typing a question, false = browsing sources
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the session model over a query service. The options are
// the initial query settings; they are replaced whenever a
// messages.SettingsReloaded arrives.
func NewApp(queries driving.QueryService, opts domain.QueryOptions) *App {
	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		list:       list.NewSourceList(s),
		statusbar:  status.NewBar(s, km),
		queries:    queries,
		ctx:        context.Background(),
		opts:       opts,
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context used for query calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("scorpius"),
		a.input.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case messages.QueryCompleted:
		a.handleQueryCompleted(msg)
		return a, nil

	case messages.SettingsReloaded:
		a.opts = msg.Options
		return a, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd

	a.input, cmd = a.input.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	a.list, cmd = a.list.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

// handleKeyMsg processes keyboard input for the active mode.
func (a *App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	if a.focusInput {
		return a.handleInputKey(msg)
	}
	return a.handleSourcesKey(msg)
}

// handleInputKey handles keys while a question is being typed.
func (a *App) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return a, tea.Quit
	case tea.KeyEnter:
		question := a.input.Value()
		if question == "" {
			return a, nil
		}
		a.statusbar.SetState(status.StateAsking)
		a.focusInput = false
		a.input.Blur()
		return a, a.performQuery(question)
	default:
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// handleSourcesKey handles keys while browsing the retrieved sources.
func (a *App) handleSourcesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.focusInput = true
		return a, a.input.Focus()
	case tea.KeyUp:
		a.list.MoveUp()
		return a, nil
	case tea.KeyDown:
		a.list.MoveDown()
		return a, nil
	default:
	}

	switch msg.String() {
	case "k":
		a.list.MoveUp()
	case "j":
		a.list.MoveDown()
	case "n":
		a.focusInput = true
		a.input.SetValue("")
		return a, a.input.Focus()
	case "q":
		return a, tea.Quit
	}
	return a, nil
}

// performQuery runs the query off the event loop and reports back with a
// messages.QueryCompleted.
func (a *App) performQuery(question string) tea.Cmd {
	return func() tea.Msg {
		if a.queries == nil {
			return messages.QueryCompleted{Err: ErrNoQueryService}
		}
		result, err := a.queries.Query(a.ctx, question, a.opts)
		return messages.QueryCompleted{Result: result, Err: err}
	}
}

// handleQueryCompleted folds a query outcome into the model.
func (a *App) handleQueryCompleted(msg messages.QueryCompleted) {
	if msg.Err != nil {
		a.err = msg.Err
		a.statusbar.SetState(status.StateError)
		a.statusbar.SetMessage(msg.Err.Error())
		a.focusInput = true
		a.input.Focus()
		return
	}

	a.err = nil
	a.answer = msg.Result.Answer
	a.subQuestions = msg.Result.SubQuestions
	a.list.SetChunks(msg.Result.Chunks)
	a.statusbar.SetState(status.StateAnswered)
	a.statusbar.SetSourceCount(len(msg.Result.Chunks))
	a.focusInput = false
	a.input.Blur()
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialisation..."
	}

	sections := make([]string, 0, 12)

	sections = append(sections, a.styles.Title.Render("Scorpius"), "")
	sections = append(sections, a.input.View(), "")

	if a.err != nil {
		sections = append(sections, a.styles.Error.Render("Error: "+a.err.Error()), "")
	}

	if a.answer != "" {
		sections = append(sections,
			a.styles.Subtitle.Render("Réponse"),
			a.styles.Answer.Width(a.width-4).Render(a.answer),
			"")
	}

	sections = append(sections, a.list.View())

	if len(a.subQuestions) > 0 {
		sections = append(sections, "", a.styles.Subtitle.Render("Sous-questions"))
		for i, sub := range a.subQuestions {
			sections = append(sections, a.styles.Muted.Render(fmt.Sprintf("  %d. %s", i+1, sub)))
		}
	}

	sections = append(sections, "", a.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the terminal dimensions and sizes the components.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	a.input.SetWidth(width)
	a.list.SetDimensions(width, height-12) // Header, input, answer, status
	a.statusbar.SetWidth(width)
}

// Ready reports whether the app received its first window size.
func (a *App) Ready() bool {
	return a.ready
}

// Question returns the typed question.
func (a *App) Question() string {
	return a.input.Value()
}

// SetQuestion sets the typed question.
func (a *App) SetQuestion(question string) {
	a.input.SetValue(question)
}

// Answer returns the synthesised answer of the last query.
func (a *App) Answer() string {
	return a.answer
}

// Chunks returns the sources of the last query.
func (a *App) Chunks() []domain.RetrievedChunk {
	return a.list.Chunks()
}

// SelectedIndex returns the index of the selected source.
func (a *App) SelectedIndex() int {
	return a.list.Selected()
}

// Options returns the query options currently in effect.
func (a *App) Options() domain.QueryOptions {
	return a.opts
}

// Err returns the last query error, if any.
func (a *App) Err() error {
	return a.err
}

// InputFocused reports whether the question input has focus.
func (a *App) InputFocused() bool {
	return a.focusInput
}
