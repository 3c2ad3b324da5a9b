package text

import (
	"strings"
)

// splitPlain cuts text into sections of at most pageChars runes. Each cut
// prefers a paragraph break, then a line break, then a space, searched in
// the back half of the window.
func splitPlain(text string, pageChars int) []section {
	if pageChars <= 0 {
		pageChars = DefaultPageChars
	}
	runes := []rune(text)
	var out []section
	for start := 0; start < len(runes); {
		end := start + pageChars
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = cutPoint(runes, start, end)
		}
		if s := string(runes[start:end]); strings.TrimSpace(s) != "" {
			out = append(out, section{content: s})
		}
		start = end
	}
	return out
}

func cutPoint(runes []rune, start, end int) int {
	half := start + (end-start)/2
	for i := end - 1; i > half; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i >= half; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i >= half; i-- {
		if runes[i] == ' ' || runes[i] == '\t' {
			return i + 1
		}
	}
	return end
}
