package chunking

import (
	"regexp"
	"strings"
)

var (
	paragraphRe = regexp.MustCompile(`\n\s*\n`)

	// French sentence boundaries: a terminator followed by whitespace and
	// an upper-case (possibly accented) letter.
	sentenceRe = regexp.MustCompile(`(?s)(.*?[.!?])\s+`)
)

// splitParagraphs splits text on blank lines, dropping empty parts.
func splitParagraphs(text string) []string {
	parts := paragraphRe.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences splits a paragraph into sentences on ./!/? boundaries.
// Text without terminators is returned as a single sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var out []string
	rest := text
	for {
		loc := sentenceRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		if s := strings.TrimSpace(rest[loc[2]:loc[3]]); s != "" {
			out = append(out, s)
		}
		rest = rest[loc[1]:]
	}
	if s := strings.TrimSpace(rest); s != "" {
		out = append(out, s)
	}
	return out
}

// tail returns the last n runes of s.
func tail(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

// hardSplit cuts s into pieces of at most size runes, without overlap.
// Used for pathological sentences longer than a whole chunk.
func hardSplit(s string, size int) []string {
	runes := []rune(s)
	if len(runes) <= size {
		return []string{s}
	}
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
