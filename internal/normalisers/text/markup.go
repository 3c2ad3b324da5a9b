package text

import (
	"html"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/custodia-labs/sercha-docs/internal/logger"
)

var (
	titleTag      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	invisibleTags = regexp.MustCompile(`(?is)<(script|style|noscript|head|svg)[^>]*>.*?</(?:script|style|noscript|head|svg)>`)
	commentTags   = regexp.MustCompile(`(?s)<!--.*?-->|<!\[CDATA\[|\]\]>|<\?.*?\?>|<!DOCTYPE[^>]*>`)
	blockTags     = regexp.MustCompile(`(?i)</?(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)(\s[^>]*)?/?>`)
	anyTag        = regexp.MustCompile(`<[^>]+>`)
	blankRuns     = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
)

// htmlTitle returns the decoded contents of the <title> element.
func htmlTitle(text string) string {
	m := titleTag.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(stripTags(m[1])))
}

// splitHTML converts markup to markdown and splits it on headers. Sections
// over the page budget are split further. When conversion fails, tags are
// stripped and the text is split by budget.
func splitHTML(text string, pageChars int) []section {
	md, err := htmltomarkdown.ConvertString(text)
	if err != nil || strings.TrimSpace(md) == "" {
		if err != nil {
			logger.Debug("text: markdown conversion failed: %v", err)
		}
		return splitPlain(stripTags(text), pageChars)
	}

	var out []section
	for _, s := range splitMarkdown(md) {
		if len([]rune(s.content)) <= pageChars {
			out = append(out, s)
			continue
		}
		for _, part := range splitPlain(s.content, pageChars) {
			part.header = s.header
			out = append(out, part)
		}
	}
	return out
}

// stripTags removes markup and keeps readable text, with block elements
// turned into line breaks.
func stripTags(text string) string {
	text = invisibleTags.ReplaceAllString(text, "")
	text = commentTags.ReplaceAllString(text, "")
	text = blockTags.ReplaceAllString(text, "\n")
	text = anyTag.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	return blankRuns.ReplaceAllString(text, "\n\n")
}
