package textutil

import "strings"

// Excerpt returns the first limit runes of text with surrounding whitespace
// trimmed and internal newlines flattened to spaces. Used to turn a paragraph
// of generated prose into a bounded image prompt.
func Excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit]))
}

// Paragraphs splits prose on blank lines, trimming each block and dropping
// empties. Single newlines inside a block are preserved.
func Paragraphs(text string) []string {
	blocks := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	out := make([]string, 0, len(blocks))
	for _, block := range blocks {
		trimmed := strings.TrimSpace(block)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
