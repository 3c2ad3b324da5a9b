package pdf

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

var pdfDateRe = regexp.MustCompile(
	`^(?:D:)?(\d{4})(\d{2})?(\d{2})?(\d{2})?(\d{2})?(\d{2})?(?:(Z)|([+\-])(\d{2})'?(\d{2})?'?)?`)

// ParseDate parses a PDF date string ("D:YYYYMMDDHHmmSSOHH'mm'").
// Omitted fields default to their minimum; an omitted zone means UTC.
func ParseDate(s string) (time.Time, bool) {
	m := pdfDateRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, false
	}
	num := func(i, def int) int {
		if m[i] == "" {
			return def
		}
		n, _ := strconv.Atoi(m[i])
		return n
	}
	year, month, day := num(1, 0), num(2, 1), num(3, 1)
	hour, minute, sec := num(4, 0), num(5, 0), num(6, 0)
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, false
	}

	loc := time.UTC
	if m[8] != "" {
		offset := num(9, 0)*3600 + num(10, 0)*60
		if m[8] == "-" {
			offset = -offset
		}
		loc = time.FixedZone("", offset)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc)
	return t.UTC(), true
}

var rawInfoRes = map[string]*regexp.Regexp{}

func rawInfo(data []byte, key string) string {
	re, ok := rawInfoRes[key]
	if !ok {
		return ""
	}
	m := re.FindSubmatch(data)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(decodeLiteral(m[1]))
}

func init() {
	for _, k := range []string{"Title", "Author", "Subject", "Creator", "Producer", "Keywords", "CreationDate", "ModDate"} {
		rawInfoRes[k] = regexp.MustCompile(`/` + k + `\s*\(((?:[^()\\]|\\.){0,1000})\)`)
	}
}

// rawMetadata reads info-dictionary entries directly from the bytes when
// the structural reader could not open the file.
func rawMetadata(data []byte) domain.DocumentMetadata {
	m := domain.DocumentMetadata{
		Title:    rawInfo(data, "Title"),
		Author:   rawInfo(data, "Author"),
		Subject:  rawInfo(data, "Subject"),
		Creator:  rawInfo(data, "Creator"),
		Producer: rawInfo(data, "Producer"),
		Keywords: rawInfo(data, "Keywords"),
	}
	if t, ok := ParseDate(rawInfo(data, "CreationDate")); ok {
		m.CreatedAt = &t
	}
	if t, ok := ParseDate(rawInfo(data, "ModDate")); ok {
		m.ModifiedAt = &t
	}
	return m
}

var pageObjRe = regexp.MustCompile(`/Type\s*/Page(?:[^s]|$)`)

// countPages counts page objects in the raw bytes. It returns at least 1.
func countPages(data []byte) int {
	n := len(pageObjRe.FindAllIndex(data, maxPageObjects))
	if n == 0 {
		return 1
	}
	return n
}
