package pdf

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var pageMarkerRe = regexp.MustCompile(`(?im)^[ \t]*page[ \t]+(\d{1,5})(?:[ \t]+of[ \t]+\d{1,5})?[ \t]*$`)

// splitPages divides fallback text into pageCount pages. Form feeds are
// used when present, then sequential "Page N" footer lines, and finally
// equal slices cut at whitespace. Page attribution is approximate.
func splitPages(text string, pageCount int) []string {
	if pageCount <= 1 {
		return []string{text}
	}

	if strings.Contains(text, "\f") {
		return strings.Split(text, "\f")
	}

	if parts, ok := splitOnMarkers(text); ok {
		return parts
	}

	return equalSlices(text, pageCount)
}

// splitOnMarkers splits after each "Page N" line when the markers number
// the pages 1, 2, 3... in order.
func splitOnMarkers(text string) ([]string, bool) {
	locs := pageMarkerRe.FindAllStringSubmatchIndex(text, maxPageObjects)
	if len(locs) < 2 {
		return nil, false
	}
	for i, loc := range locs {
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil || n != i+1 {
			return nil, false
		}
	}

	parts := make([]string, 0, len(locs)+1)
	start := 0
	for _, loc := range locs {
		parts = append(parts, text[start:loc[1]])
		start = loc[1]
	}
	if rest := text[start:]; strings.TrimSpace(rest) != "" {
		parts[len(parts)-1] += rest
	}
	return parts, true
}

const sliceSearchWindow = 200

// equalSlices cuts text into n pieces of roughly equal rune length,
// moving each cut forward to the next whitespace when one is close.
func equalSlices(text string, n int) []string {
	r := []rune(text)
	if len(r) == 0 {
		return []string{""}
	}
	if n > len(r) {
		n = len(r)
	}
	size := len(r) / n

	parts := make([]string, 0, n)
	start := 0
	for i := 1; i < n && start < len(r); i++ {
		cut := i * size
		if cut <= start {
			cut = start + 1
		}
		for j := cut; j < len(r) && j < cut+sliceSearchWindow; j++ {
			if unicode.IsSpace(r[j]) {
				cut = j
				break
			}
		}
		parts = append(parts, string(r[start:cut]))
		start = cut
	}
	parts = append(parts, string(r[start:]))
	return parts
}
