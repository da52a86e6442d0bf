// Package list provides the navigable list of retrieved sources.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cisbeo/scorpius-rag/internal/adapters/driving/tui/styles"
	"github.com/cisbeo/scorpius-rag/internal/core/domain"
)

// SourceList displays the retrieved chunks of a query result in a
// navigable list, best score first.
type SourceList struct {
	chunks   []domain.RetrievedChunk
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewSourceList creates an empty source list.
func NewSourceList(s *styles.Styles) *SourceList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &SourceList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Update handles list navigation messages.
func (l *SourceList) Update(msg tea.Msg) (*SourceList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyUp:
			l.MoveUp()
		case tea.KeyDown:
			l.MoveDown()
		default:
		}
		switch msg.String() {
		case "k":
			l.MoveUp()
		case "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the source list.
func (l *SourceList) View() string {
	if len(l.chunks) == 0 {
		return l.styles.Muted.Render("Aucune source")
	}

	lines := make([]string, 0, len(l.chunks)*2+2)

	header := l.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(l.chunks)))
	lines = append(lines, header, "")

	// Each source takes two lines plus the header block.
	visible := (l.height - 2) / 2
	if visible < 1 {
		visible = 1
	}

	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := start + visible
	if end > len(l.chunks) {
		end = len(l.chunks)
	}

	for i := start; i < end; i++ {
		lines = append(lines, l.renderChunk(i, &l.chunks[i]))
	}

	return strings.Join(lines, "\n")
}

// renderChunk formats one retrieved chunk as a title line plus a text
// preview.
func (l *SourceList) renderChunk(index int, rc *domain.RetrievedChunk) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	title := rc.Chunk.DocumentID
	if rc.Chunk.SectionType != "" {
		title += " · " + rc.Chunk.SectionType
	}

	maxTitle := l.width - 20
	if maxTitle < 10 {
		maxTitle = 10
	}
	title = truncate(title, maxTitle)

	tag := fmt.Sprintf("%.2f", rc.Score)
	if rc.Lexical {
		tag = "exact"
	}

	var titleLine string
	if index == l.selected {
		titleLine = l.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxTitle, title, tag))
	} else {
		titleLine = l.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, maxTitle, title)) +
			l.styles.Muted.Render(tag)
	}

	preview := strings.Join(strings.Fields(rc.Chunk.Text), " ")
	maxPreview := l.width - 6
	if maxPreview < 20 {
		maxPreview = 20
	}
	previewLine := l.styles.Muted.Render("    " + truncate(preview, maxPreview))

	return titleLine + "\n" + previewLine
}

// SetChunks replaces the list content and resets the selection.
func (l *SourceList) SetChunks(chunks []domain.RetrievedChunk) {
	l.chunks = chunks
	l.selected = 0
}

// Chunks returns the current list content.
func (l *SourceList) Chunks() []domain.RetrievedChunk {
	return l.chunks
}

// Selected returns the index of the selected source.
func (l *SourceList) Selected() int {
	return l.selected
}

// SelectedChunk returns the selected source, or nil when the list is
// empty.
func (l *SourceList) SelectedChunk() *domain.RetrievedChunk {
	if len(l.chunks) == 0 || l.selected < 0 || l.selected >= len(l.chunks) {
		return nil
	}
	return &l.chunks[l.selected]
}

// MoveUp moves the selection up.
func (l *SourceList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves the selection down.
func (l *SourceList) MoveDown() {
	if l.selected < len(l.chunks)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *SourceList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of sources.
func (l *SourceList) Count() int {
	return len(l.chunks)
}

// truncate caps s at max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
