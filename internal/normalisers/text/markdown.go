package text

import (
	"strings"
)

// splitMarkdown starts a new section at every level-one or level-two
// header outside fenced code blocks. Text before the first header forms
// its own section.
func splitMarkdown(text string) []section {
	var (
		sections []section
		cur      section
		buf      strings.Builder
		fence    string
	)
	flush := func() {
		cur.content = buf.String()
		if strings.TrimSpace(cur.content) != "" {
			sections = append(sections, cur)
		}
		buf.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if marker := fenceMarker(trimmed); marker != "" {
			switch {
			case fence == "":
				fence = marker
			case strings.HasPrefix(marker, fence):
				fence = ""
			}
		}
		if fence == "" {
			if header, ok := sectionHeader(trimmed); ok {
				flush()
				cur = section{header: header}
			}
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	flush()
	return sections
}

func fenceMarker(line string) string {
	for _, f := range []string{"```", "~~~"} {
		if strings.HasPrefix(line, f) {
			return f
		}
	}
	return ""
}

// sectionHeader reports whether line is a "#" or "##" ATX header and
// returns its text.
func sectionHeader(line string) (string, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 2 {
		return "", false
	}
	rest := line[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	header := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), "#"))
	return header, header != ""
}

// markdownTitle returns the first level-one header outside code fences.
func markdownTitle(text string) string {
	fence := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if marker := fenceMarker(line); marker != "" {
			if fence == "" {
				fence = marker
			} else if strings.HasPrefix(marker, fence) {
				fence = ""
			}
			continue
		}
		if fence == "" && strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}
