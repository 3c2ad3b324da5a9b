package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxKeywords caps the keywords extracted from a query.
const DefaultMaxKeywords = 5

// minKeywordRunes is the shortest token kept as a keyword.
const minKeywordRunes = 3

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a about above after again against all am an and any are as at be because been before
		being below between both but by can could did do does doing down during each few for
		from further had has have having he her here hers herself him himself his how i if in
		into is it its itself just me more most my myself no nor not now of off on once only or
		other our ours ourselves out over own same she should so some such than that the their
		theirs them themselves then there these they this those through to too under until up
		very was we were what when where which while who whom why will with would you your
		yours yourself yourselves also get got like make many may might much must need one
		shall tell show find give know please thing things use used using want way well`) {
		stopWords[w] = struct{}{}
	}
}

// ExtractKeywords lowercases text, replaces non-alphanumerics with spaces,
// drops stop words and tokens shorter than three characters, and returns
// at most max distinct keywords in order of first appearance.
// A max of zero or less means DefaultMaxKeywords.
func ExtractKeywords(text string, max int) []string {
	if max <= 0 {
		max = DefaultMaxKeywords
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	seen := make(map[string]struct{})
	var out []string
	for _, tok := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(tok) < minKeywordRunes {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if len(out) == max {
			break
		}
	}
	return out
}
