package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cisbeo/scorpius-rag/internal/adapters/driving/tui/messages"
	"github.com/cisbeo/scorpius-rag/internal/core/domain"
)

// mockQueryService implements driving.QueryService for testing.
type mockQueryService struct {
	QueryFunc func(ctx context.Context, query string, opts domain.QueryOptions) (*domain.QueryResult, error)
}

func (m *mockQueryService) Query(
	ctx context.Context,
	query string,
	opts domain.QueryOptions,
) (*domain.QueryResult, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, query, opts)
	}
	return &domain.QueryResult{Query: query}, nil
}

func testQueryResult() *domain.QueryResult {
	return &domain.QueryResult{
		Query:  "Quel est le délai de réponse ?",
		Answer: "Le délai de réponse est de 30 jours [Source 1].",
		Chunks: []domain.RetrievedChunk{
			{
				Chunk: domain.Chunk{
					ID:         "chunk-a",
					DocumentID: "ccap-2024",
					Text:       "Le délai de réponse est de 30 jours.",
				},
				Score: 0.92,
			},
			{
				Chunk: domain.Chunk{
					ID:         "chunk-b",
					DocumentID: "rc-2024",
					Text:       "L'article 12 fixe les modalités de remise.",
				},
				Score:   domain.LexicalScore,
				Lexical: true,
			},
		},
	}
}

func TestNewApp(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})

	require.NotNil(t, app)
	assert.False(t, app.Ready())
	assert.Equal(t, "", app.Question())
	assert.True(t, app.InputFocused())
}

func TestApp_WithContext(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})
	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	result := app.WithContext(ctx)

	assert.Equal(t, app, result)
	assert.Equal(t, ctx, app.ctx)
}

func TestApp_Init(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})

	assert.NotNil(t, app.Init())
}

func TestApp_Update_WindowSize(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})

	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	assert.True(t, app.Ready())
	assert.Equal(t, 100, app.width)
	assert.Equal(t, 40, app.height)
}

func TestApp_Update_CharacterInput(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})

	assert.Equal(t, "a", app.Question())
}

func TestApp_Update_KeyEnter_SubmitsQuestion(t *testing.T) {
	var asked string
	mock := &mockQueryService{
		QueryFunc: func(ctx context.Context, query string, opts domain.QueryOptions) (*domain.QueryResult, error) {
			asked = query
			return testQueryResult(), nil
		},
	}
	app := NewApp(mock, domain.QueryOptions{})
	app.SetQuestion("Quel est le délai ?")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	msg := cmd()
	assert.IsType(t, messages.QueryCompleted{}, msg)
	assert.Equal(t, "Quel est le délai ?", asked)
	assert.False(t, app.InputFocused())
}

func TestApp_Update_KeyEnter_EmptyQuestion(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.True(t, app.InputFocused())
}

func TestApp_Update_QueryCompleted(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})
	app.SetDimensions(80, 24)

	app.Update(messages.QueryCompleted{Result: testQueryResult()})

	assert.Len(t, app.Chunks(), 2)
	assert.Contains(t, app.Answer(), "30 jours")
	assert.False(t, app.InputFocused())
	assert.NoError(t, app.Err())
}

func TestApp_Update_QueryCompleted_Error(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})
	app.SetDimensions(80, 24)

	app.Update(messages.QueryCompleted{Err: errors.New("query failed")})

	assert.Error(t, app.Err())
	assert.True(t, app.InputFocused(), "a failed query returns to the input")
}

func TestApp_Update_SettingsReloaded(t *testing.T) {
	var gotOpts domain.QueryOptions
	mock := &mockQueryService{
		QueryFunc: func(ctx context.Context, query string, opts domain.QueryOptions) (*domain.QueryResult, error) {
			gotOpts = opts
			return testQueryResult(), nil
		},
	}
	app := NewApp(mock, domain.QueryOptions{TopK: 5})

	app.Update(messages.SettingsReloaded{Options: domain.QueryOptions{TopK: 9}})
	assert.Equal(t, 9, app.Options().TopK)

	// The next question runs with the reloaded settings.
	app.SetQuestion("Quel est le délai ?")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 9, gotOpts.TopK)
}

func TestApp_Navigation(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})
	app.Update(messages.QueryCompleted{Result: testQueryResult()})

	app.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, app.SelectedIndex())

	app.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, app.SelectedIndex())

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 1, app.SelectedIndex())

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 0, app.SelectedIndex())
}

func TestApp_Navigation_OnlyInSourcesMode(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})
	app.Update(messages.QueryCompleted{Result: testQueryResult()})
	app.focusInput = true

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})

	assert.Equal(t, 0, app.SelectedIndex())
}

func TestApp_Update_KeyN_NewQuestion(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})
	app.Update(messages.QueryCompleted{Result: testQueryResult()})
	app.SetQuestion("ancienne question")

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})

	assert.True(t, app.InputFocused())
	assert.Equal(t, "", app.Question())
}

func TestApp_Update_KeyEsc_BackToInput(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})
	app.Update(messages.QueryCompleted{Result: testQueryResult()})
	require.False(t, app.InputFocused())

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.True(t, app.InputFocused())
	assert.Len(t, app.Chunks(), 2, "going back keeps the last sources")
}

func TestApp_Update_KeyEsc_InInputQuits(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_Update_CtrlCQuits(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})
	app.Update(messages.QueryCompleted{Result: testQueryResult()})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_PerformQuery_NoService(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})
	app.SetQuestion("test")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	msg := cmd()
	completed, ok := msg.(messages.QueryCompleted)
	require.True(t, ok)
	assert.ErrorIs(t, completed.Err, ErrNoQueryService)
}

func TestApp_PerformQuery_ServiceError(t *testing.T) {
	expectedErr := errors.New("store unavailable")
	mock := &mockQueryService{
		QueryFunc: func(ctx context.Context, query string, opts domain.QueryOptions) (*domain.QueryResult, error) {
			return nil, expectedErr
		},
	}
	app := NewApp(mock, domain.QueryOptions{})
	app.SetQuestion("test")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	completed, ok := cmd().(messages.QueryCompleted)
	require.True(t, ok)
	assert.ErrorIs(t, completed.Err, expectedErr)
}

func TestApp_ContextPropagation(t *testing.T) {
	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("test"), "value")

	var called bool
	mock := &mockQueryService{
		QueryFunc: func(receivedCtx context.Context, query string, opts domain.QueryOptions) (*domain.QueryResult, error) {
			called = true
			assert.Equal(t, "value", receivedCtx.Value(contextKey("test")))
			return testQueryResult(), nil
		},
	}
	app := NewApp(mock, domain.QueryOptions{}).WithContext(ctx)
	app.SetQuestion("test")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()

	assert.True(t, called)
}

func TestApp_View_NotReady(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})

	assert.Contains(t, app.View(), "Initialisation")
}

func TestApp_View_Ready(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})
	app.SetDimensions(80, 24)

	output := app.View()

	assert.Contains(t, output, "Scorpius")
	assert.Contains(t, output, "Question")
}

func TestApp_View_WithResult(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})
	app.SetDimensions(80, 24)
	app.Update(messages.QueryCompleted{Result: testQueryResult()})

	output := app.View()

	assert.Contains(t, output, "Réponse")
	assert.Contains(t, output, "ccap-2024")
	assert.Contains(t, output, "rc-2024")
}

func TestApp_View_WithSubQuestions(t *testing.T) {
	result := testQueryResult()
	result.SubQuestions = []string{"Quel est le délai ?", "Quel est le montant ?"}

	app := NewApp(nil, domain.QueryOptions{})
	app.SetDimensions(80, 24)
	app.Update(messages.QueryCompleted{Result: result})

	output := app.View()

	assert.Contains(t, output, "Sous-questions")
	assert.Contains(t, output, "1. Quel est le délai ?")
}

func TestApp_View_WithError(t *testing.T) {
	app := NewApp(nil, domain.QueryOptions{})
	app.SetDimensions(80, 24)
	app.Update(messages.QueryCompleted{Err: errors.New("boom")})

	assert.Contains(t, app.View(), "boom")
}
