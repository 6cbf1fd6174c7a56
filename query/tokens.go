package query

import (
	"strings"
	"unicode"
)

// isWordRune reports whether r is a "word" character for token extraction:
// a Unicode letter, a digit, or underscore. Go's regexp package treats \w
// as ASCII-only, but Hebrew text needs Unicode-aware splitting the way
// Python's `regex` module (used by the original implementation) already
// does by default, so token extraction here is hand-rolled rather than
// routed through RE2's \w.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// splitTokens splits a query into its word-character runs, discarding
// anything that isn't a letter, digit, or underscore (spec.md §4.4:
// "split the raw query on any non-word character; keep non-empty runs of
// word characters"). This is what feeds the FTS phrase/prefix filters;
// FTS5 itself treats -, +, *, and quotes as operators, so unsanitised
// query text would be a syntax error or a semantic landmine.
func splitTokens(q string) []string {
	return strings.FieldsFunc(q, func(r rune) bool { return !isWordRune(r) })
}

// whitespaceTokens splits a query on whitespace only, keeping any
// punctuation attached to each token. This is the split the ignore_punct
// pattern builder uses to find its token boundaries (it inserts mandatory
// punctuation-or-whitespace between these, not between splitTokens' runs).
func whitespaceTokens(q string) []string {
	return strings.Fields(q)
}
