package query

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/rangetable"
)

// wordTable is the merged range table backing isWordRune's Unicode.In
// check. RE2 (Go's regexp package) only recognises ASCII word characters
// in \b, so a query built around `\b…\b` never finds a boundary next to
// Hebrew text — exact mode's own boundary check is therefore done here,
// manually, against this table, rather than by asking RE2 for \b.
// Grounded on the merge pattern golang.org/x/text/unicode/rangetable
// exists for: combining several category tables into one reusable set.
var wordTable = rangetable.Merge(unicode.L, unicode.N)

func isWordRuneUnicode(r rune) bool {
	return unicode.Is(wordTable, r) || r == '_'
}

// atWordBoundary reports whether position pos in text sits at a word
// boundary: the transition between a word rune and a non-word rune (or
// the start/end of the string), mirroring \b's definition but extended to
// every Unicode letter and digit, not just ASCII ones.
func atWordBoundary(text string, pos int) bool {
	before := runeBefore(text, pos)
	after := runeAfter(text, pos)
	beforeIsWord := before != utf8.RuneError && isWordRuneUnicode(before)
	afterIsWord := after != utf8.RuneError && isWordRuneUnicode(after)
	return beforeIsWord != afterIsWord
}

func runeBefore(text string, pos int) rune {
	if pos <= 0 {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return r
}

func runeAfter(text string, pos int) rune {
	if pos >= len(text) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(text[pos:])
	return r
}
