package utils

import (
	"html"
	"regexp"
	"strings"
)

var (
	lineBreakPattern  = regexp.MustCompile(`(?i)<(?:br\s*/?|hr[^>]*|/p|/div)>`)
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`[ \t]+`)
)

// StripHTML converts markup to plain text: block/line-break tags become
// newlines, remaining tags are dropped, entities are decoded and
// horizontal whitespace is collapsed.
func StripHTML(s string) string {
	out := lineBreakPattern.ReplaceAllString(s, "\n")
	out = htmlTagPattern.ReplaceAllString(out, "")
	out = html.UnescapeString(out)
	out = whitespacePattern.ReplaceAllString(out, " ")

	lines := strings.Split(out, "\n")
	var kept []string
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}

// Truncate shortens s to at most max runes, appending an ellipsis when
// anything was cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
