package text

import (
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-docs/internal/signature"
)

var extSubFormats = map[string]string{
	".txt":      SubFormatPlain,
	".text":     SubFormatPlain,
	".log":      SubFormatPlain,
	".md":       SubFormatMarkdown,
	".markdown": SubFormatMarkdown,
	".json":     SubFormatJSON,
	".csv":      SubFormatCSV,
	".tsv":      SubFormatCSV,
	".xml":      SubFormatXML,
	".html":     SubFormatHTML,
	".htm":      SubFormatHTML,
	".yaml":     SubFormatYAML,
	".yml":      SubFormatYAML,
}

var mimeSubFormats = map[string]string{
	"text/markdown":             SubFormatMarkdown,
	"text/x-markdown":           SubFormatMarkdown,
	"application/json":          SubFormatJSON,
	"text/json":                 SubFormatJSON,
	"text/csv":                  SubFormatCSV,
	"application/csv":           SubFormatCSV,
	"text/tab-separated-values": SubFormatCSV,
	"application/xml":           SubFormatXML,
	"text/xml":                  SubFormatXML,
	"text/html":                 SubFormatHTML,
	"application/xhtml+xml":     SubFormatHTML,
	"application/yaml":          SubFormatYAML,
	"application/x-yaml":        SubFormatYAML,
	"text/yaml":                 SubFormatYAML,
	"text/x-yaml":               SubFormatYAML,
}

const sniffSample = 8192

var (
	mdHeaderRe = regexp.MustCompile(`(?m)^#{1,6}[ \t]+\S`)
	mdBoldRe   = regexp.MustCompile(`\*\*[^*\n]+\*\*|__[^_\n]+__`)
	mdLinkRe   = regexp.MustCompile(`\[[^\]\n]+\]\([^)\s]+\)`)
	mdListRe   = regexp.MustCompile(`(?m)^[ \t]*(?:[-*+]|\d+\.)[ \t]+\S`)
	htmlRe     = regexp.MustCompile(`(?i)<!doctype\s+html|<html[\s>]|<body[\s>]|<(?:div|p|h[1-6]|table|span)[\s>]`)
	xmlRe      = regexp.MustCompile(`^(?:<\?xml|<[A-Za-z_][\w:.\-]*[\s/>])`)
)

// detectSubFormat classifies text by exact extension, then declared MIME
// type, then content: markdown, JSON, CSV, XML/HTML, and finally plain text.
func detectSubFormat(filename, contentType, text string) string {
	if sub, ok := extSubFormats[strings.ToLower(filepath.Ext(filename))]; ok {
		return sub
	}
	if sub, ok := mimeSubFormats[signature.NormaliseMIME(contentType)]; ok {
		return sub
	}

	sample := text
	if len(sample) > sniffSample {
		sample = sample[:sniffSample]
	}
	trimmed := strings.TrimSpace(sample)

	switch {
	case looksLikeMarkdown(sample):
		return SubFormatMarkdown
	case (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) && json.Valid([]byte(text)):
		return SubFormatJSON
	case looksLikeCSV(sample):
		return SubFormatCSV
	case htmlRe.MatchString(sample):
		return SubFormatHTML
	case xmlRe.MatchString(trimmed) && strings.Contains(trimmed, "</"):
		return SubFormatXML
	}
	return SubFormatPlain
}

func looksLikeMarkdown(s string) bool {
	if mdHeaderRe.MatchString(s) {
		return true
	}
	features := 0
	for _, re := range []*regexp.Regexp{mdBoldRe, mdLinkRe, mdListRe} {
		if re.MatchString(s) {
			features++
		}
	}
	return features >= 2
}

// looksLikeCSV requires at least two lines sharing the same non-zero
// count of commas outside quotes.
func looksLikeCSV(s string) bool {
	lines := make([]string, 0, 10)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == 10 {
			break
		}
	}
	// A truncated sample may cut the last line short.
	if len(s) == sniffSample && len(lines) > 2 {
		lines = lines[:len(lines)-1]
	}
	if len(lines) < 2 {
		return false
	}
	want := commasOutsideQuotes(lines[0])
	if want == 0 {
		return false
	}
	for _, line := range lines[1:] {
		if commasOutsideQuotes(line) != want {
			return false
		}
	}
	return true
}

func commasOutsideQuotes(line string) int {
	n := 0
	quoted := false
	for _, r := range line {
		switch r {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				n++
			}
		}
	}
	return n
}
