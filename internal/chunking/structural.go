package chunking

import (
	"regexp"
	"sort"
	"strings"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/logger"
)

// Heading patterns of French procurement documents, used when no
// structural hints are supplied.
var sectionPatterns = map[string]*regexp.Regexp{
	"article":  regexp.MustCompile(`(?mi)(?:Article)\s+(\d+(?:\.\d+)?)`),
	"chapitre": regexp.MustCompile(`(?mi)(?:Chapitre)\s+([IVXLCDM]+|\d+)`),
	"section":  regexp.MustCompile(`(?mi)(?:Section)\s+(\d+(?:\.\d+)?)`),
	"titre":    regexp.MustCompile(`(?mi)(?:Titre)\s+([IVXLCDM]+|\d+)`),
	"annexe":   regexp.MustCompile(`(?mi)(?:Annexe)\s+(\d+|[A-Z])`),
	"clause":   regexp.MustCompile(`(?mi)(?:Clause)\s+(\d+(?:\.\d+)?)`),
}

// Document-family markers: all words must appear for the tag to apply.
// Checked in order so detection stays deterministic.
var docTypeMarkers = []struct {
	family  string
	markers []string
}{
	{"CCTP", []string{"cahier", "clauses", "techniques", "particulières"}},
	{"CCAP", []string{"cahier", "clauses", "administratives", "particulières"}},
	{"RC", []string{"règlement", "consultation"}},
	{"BPU", []string{"bordereau", "prix", "unitaires"}},
	{"DQE", []string{"détail", "quantitatif", "estimatif"}},
	{"DPGF", []string{"décomposition", "prix", "global", "forfaitaire"}},
}

// Structural turns each leaf structural unit (article, clause, section,
// table) into one chunk. Oversized leaves fall back to semantic splitting,
// and malformed hints degrade the whole document to the semantic strategy.
type Structural struct {
	cfg Config
}

// Strategy implements driven.Chunker.
func (st *Structural) Strategy() domain.ChunkingStrategy { return domain.StrategyStructural }

// Chunk implements driven.Chunker.
func (st *Structural) Chunk(text string, hints *domain.Structure) ([]domain.ChunkDraft, error) {
	if strings.TrimSpace(text) == "" && (hints == nil || len(hints.Sections) == 0) {
		return nil, nil
	}

	sem := &Semantic{cfg: st.cfg}

	if hints != nil && len(hints.Sections) > 0 {
		if !validHints(hints.Sections) {
			logger.Warn("Malformed structural hints, degrading to semantic chunking")
			return sem.Chunk(text, nil)
		}
		drafts := st.fromHints(hints.Sections, sem)
		return reindex(drafts), nil
	}

	// No hints: recover structure from French heading patterns.
	drafts := st.fromHeadings(text, sem)
	if len(drafts) == 0 {
		return sem.Chunk(text, nil)
	}
	return reindex(drafts), nil
}

// validHints rejects inconsistent nesting: a node carrying both leaf text
// and children is ambiguous, as is a node carrying neither.
func validHints(sections []domain.Section) bool {
	for _, sec := range sections {
		hasText := strings.TrimSpace(sec.Text) != ""
		hasChildren := len(sec.Children) > 0
		if hasText && hasChildren {
			return false
		}
		if !hasText && !hasChildren {
			return false
		}
		if hasChildren && !validHints(sec.Children) {
			return false
		}
	}
	return true
}

// fromHints walks the hint tree depth-first, emitting one draft per leaf.
func (st *Structural) fromHints(sections []domain.Section, sem *Semantic) []domain.ChunkDraft {
	var drafts []domain.ChunkDraft
	for _, sec := range sections {
		if len(sec.Children) > 0 {
			drafts = append(drafts, st.fromHints(sec.Children, sem)...)
			continue
		}
		leaf := strings.TrimSpace(sec.Text)
		if sec.Title != "" {
			leaf = sec.Title + "\n" + leaf
		}
		drafts = append(drafts, st.leafDrafts(leaf, sec.Type, sec.Page, sem)...)
	}
	return drafts
}

// leafDrafts emits the drafts for one structural leaf, splitting
// semantically when the leaf exceeds the size bound.
func (st *Structural) leafDrafts(text, sectionType string, page int, sem *Semantic) []domain.ChunkDraft {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	docType := detectDocumentType(text)

	if len([]rune(text)) <= st.cfg.ChunkSize {
		return []domain.ChunkDraft{{
			Text:         text,
			SectionType:  sectionType,
			PageNumber:   page,
			DocumentType: docType,
		}}
	}

	parts := sem.split(text)
	for i := range parts {
		parts[i].SectionType = sectionType
		parts[i].PageNumber = page
		parts[i].DocumentType = docType
	}
	return parts
}

// headingMatch is one recognised heading in raw text.
type headingMatch struct {
	kind  string
	start int
}

// fromHeadings slices the raw text at recognised French headings and emits
// one draft per section span.
func (st *Structural) fromHeadings(text string, sem *Semantic) []domain.ChunkDraft {
	var matches []headingMatch
	for kind, re := range sectionPatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			matches = append(matches, headingMatch{kind: kind, start: loc[0]})
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		return matches[i].kind < matches[j].kind
	})

	// Two patterns matching the same offset would duplicate the span.
	deduped := matches[:1]
	for _, m := range matches[1:] {
		if m.start != deduped[len(deduped)-1].start {
			deduped = append(deduped, m)
		}
	}
	matches = deduped

	var drafts []domain.ChunkDraft
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1].start
		}
		span := strings.TrimSpace(text[m.start:end])
		drafts = append(drafts, st.leafDrafts(span, m.kind, 0, sem)...)
	}
	return drafts
}

// detectDocumentType tags text with the French procurement document family
// whose markers all appear in it, if any.
func detectDocumentType(text string) string {
	lower := strings.ToLower(text)
	for _, dt := range docTypeMarkers {
		all := true
		for _, marker := range dt.markers {
			if !strings.Contains(lower, marker) {
				all = false
				break
			}
		}
		if all {
			return dt.family
		}
	}
	return ""
}
