package query

import (
	"regexp"
	"strings"
)

// punctInterleavedPattern builds the ignore_punct regex body spec.md §4.4
// describes: each whitespace-separated token of the raw query has its
// characters joined by an optional punctuation class, and tokens are
// joined by a mandatory punctuation-or-whitespace run. Grounded on
// _examples/original_source/app/services/index.py's
// _build_ignore_punct_pattern.
//
// Punctuation is optional both between a token's own characters (so
// "צהל" matches the punctuated form "צה״ל") and, via a mandatory
// punctuation-or-whitespace run, between whitespace-separated tokens (so
// "שלום עולם" matches "שלום, עולם"). The pattern never widens beyond
// what this construction provides — see spec.md §9 for what is still out
// of scope (punctuation the query text gives no hint of).
func punctInterleavedPattern(query string) string {
	tokens := whitespaceTokens(query)
	var tokenPatterns []string
	for _, tok := range tokens {
		chars := []string{}
		for _, r := range tok {
			chars = append(chars, regexp.QuoteMeta(string(r)))
		}
		if len(chars) == 0 {
			continue
		}
		tokenPatterns = append(tokenPatterns, strings.Join(chars, `[\p{P}]*`))
	}
	if len(tokenPatterns) == 0 {
		return ""
	}
	return strings.Join(tokenPatterns, `[\p{P}\s]+`)
}
