package normalisers

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

var typography = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\u2018", "'", "\u2019", "'", "\u201a", "'", "\u201b", "'", "\u2032", "'",
	"\u201c", `"`, "\u201d", `"`, "\u201e", `"`, "\u201f", `"`, "\u2033", `"`,
	"\u00ab", `"`, "\u00bb", `"`,
	"\u2010", "-", "\u2011", "-", "\u2012", "-", "\u2013", "-", "\u2014", "-", "\u2015", "-", "\u2212", "-",
	"\u2026", "...",
	"\u00a0", " ", "\u2007", " ", "\u202f", " ", "\u2009", " ", "\u200a", " ",
	"\u200b", "", "\u200c", "", "\u200d", "", "\u2060", "", "\ufeff", "", "\u00ad", "",
	"\ufb00", "ff", "\ufb01", "fi", "\ufb02", "fl", "\ufb03", "ffi", "\ufb04", "ffl",
	"\u2022", "*", "\u25cf", "*", "\u25aa", "*",
)

// Sanitize normalises typography, strips control and non-printable
// characters and collapses whitespace: runs of spaces become one space,
// lines are trimmed and at most one blank line separates paragraphs.
func Sanitize(s string) string {
	s = stripUnprintable(typography.Replace(s), true)

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blankRun := 0
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blankRun++
			if blankRun > 1 || len(out) == 0 {
				continue
			}
		} else {
			blankRun = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Clean strips control and non-printable characters, normalises line
// endings, trims trailing spaces and collapses runs of blank lines.
// Leading indentation is preserved.
func Clean(s string) string {
	s = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\ufeff", "").Replace(s)
	s = stripUnprintable(s, false)

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blankRun := 0
	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if line == "" {
			blankRun++
			if blankRun > 1 || len(out) == 0 {
				continue
			}
		} else {
			blankRun = 0
		}
		out = append(out, line)
	}
	return strings.TrimRightFunc(strings.Join(out, "\n"), unicode.IsSpace)
}

func stripUnprintable(s string, formFeedAsNewline bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r == '\f' || r == '\v':
			if formFeedAsNewline {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		case r == utf8.RuneError:
		case unicode.IsControl(r):
		case unicode.Is(unicode.Co, r), unicode.Is(unicode.Cs, r):
		case unicode.IsPrint(r) || unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CountWords returns the number of whitespace-separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// CountChars returns the number of characters (runes).
func CountChars(s string) int {
	return utf8.RuneCountInString(s)
}

var englishMarkers = map[string]bool{
	"the": true, "and": true, "of": true, "to": true, "is": true, "in": true,
	"that": true, "for": true, "with": true, "on": true, "are": true, "this": true,
	"be": true, "as": true, "it": true, "or": true, "by": true, "from": true,
}

const languageSample = 20000

// DetectLanguage guesses "en" from the share of common English function
// words, otherwise "und".
func DetectLanguage(s string) string {
	if len(s) > languageSample {
		s = s[:languageSample]
	}
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) < 5 {
		return "und"
	}
	hits := 0
	for _, w := range words {
		if englishMarkers[w] {
			hits++
		}
	}
	if float64(hits)/float64(len(words)) >= 0.05 {
		return "en"
	}
	return "und"
}

// TitleFromFilename derives a human-readable title from a file name.
func TitleFromFilename(name string) string {
	name = filepath.Base(name)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}
