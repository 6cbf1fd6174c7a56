package query

import "strings"

// phraseQuery builds the FTS5 phrase query for exact mode: `"tok1 tok2 …
// tokN"`. Tokens are word-character runs (see splitTokens) so none of
// them can themselves contain an FTS operator character or an
// unescaped quote; the embedding quotes are doubled defensively anyway,
// per spec.md §4.4's "quotation marks inside the query must be doubled".
func phraseQuery(tokens []string) string {
	escaped := make([]string, len(tokens))
	for i, t := range tokens {
		escaped[i] = strings.ReplaceAll(t, `"`, `""`)
	}
	return `"` + strings.Join(escaped, " ") + `"`
}

// prefixOrQuery builds the FTS5 prefix-OR query for partial mode:
// `tok1* OR tok2* OR … OR tokN*`.
func prefixOrQuery(tokens []string) string {
	clauses := make([]string, len(tokens))
	for i, t := range tokens {
		clauses[i] = strings.ReplaceAll(t, `"`, `""`) + "*"
	}
	return strings.Join(clauses, " OR ")
}

// firstWordRun returns the first run of at least minLen consecutive word
// characters in pattern, for regex mode's prefix-filter extraction
// (spec.md §4.4: "pick the first run of ≥2 word characters from the
// pattern as a prefix filter").
func firstWordRun(pattern string, minLen int) (string, bool) {
	runes := []rune(pattern)
	start := -1
	for i := 0; i <= len(runes); i++ {
		isWord := i < len(runes) && isWordRune(runes[i])
		if isWord {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			if i-start >= minLen {
				return string(runes[start:i]), true
			}
			start = -1
		}
	}
	return "", false
}

// prefixQuery builds the single-prefix-token FTS5 filter regex mode uses.
func prefixQuery(token string) string {
	return strings.ReplaceAll(token, `"`, `""`) + "*"
}
