// Package classify implements the Position Classifier (spec.md §4.6): a
// pure function that labels a match span with where it falls inside its
// containing segment. It has no teacher analogue in the pack — the shape
// here follows the same pure, stateless, table-driven style as the
// teacher's retrieval/rrf.go, just applied to this domain's own inputs.
package classify

import (
	"sort"
	"strings"
)

// Label is one of the three position labels a hit can carry.
type Label string

const (
	Start Label = "start"
	End   Label = "end"
	Cross Label = "cross"
)

// Boundary is one segment's placement within a document's full text:
// its starting char_offset and its text length.
type Boundary struct {
	CharOffset int
	Len        int
}

// Classify returns the subset of {start, end, cross} that applies to a
// match spanning [hitStart, hitEnd) in fullText, given the containing
// document's segment boundaries sorted by CharOffset (spec.md §4.6).
//
// boundaries must be sorted ascending by CharOffset; callers resolving many
// hits against the same document should sort once and reuse it.
func Classify(hitStart, hitEnd int, fullText string, boundaries []Boundary) []Label {
	idx := segmentIndexFor(hitStart, boundaries)
	if idx < 0 {
		return nil
	}
	b := boundaries[idx]

	offInSeg := hitStart - b.CharOffset
	matchLen := hitEnd - hitStart
	segEnd := b.CharOffset + b.Len
	if segEnd > len(fullText) {
		segEnd = len(fullText)
	}
	segText := fullText[b.CharOffset:segEnd]

	var labels []Label
	if isStart(segText, offInSeg) {
		labels = append(labels, Start)
	}
	if isEnd(segText, offInSeg, matchLen) {
		labels = append(labels, End)
	}
	if offInSeg+matchLen > b.Len {
		labels = append(labels, Cross)
	}
	return labels
}

// isStart implements spec.md §4.6's start rule: no space in the segment
// and the match begins at offset 0, or the match begins before the
// segment's first space.
func isStart(segText string, offInSeg int) bool {
	s0 := strings.IndexByte(segText, ' ')
	if s0 == -1 {
		return offInSeg == 0
	}
	return offInSeg < s0
}

// isEnd implements spec.md §4.6's end rule: no space in the segment and
// the match reaches or passes the segment's end, or the match extends
// past the segment's last space.
func isEnd(segText string, offInSeg, matchLen int) bool {
	sN := strings.LastIndexByte(segText, ' ')
	if sN == -1 {
		return offInSeg+matchLen >= len(segText)
	}
	return offInSeg+matchLen > sN
}

// segmentIndexFor returns the index of the segment containing hitStart:
// the largest index whose CharOffset <= hitStart, clamped to >= 0 (spec.md
// §4.5's bisect_right(seg_offsets, h) - 1 rule). Returns -1 if boundaries
// is empty.
func segmentIndexFor(hitStart int, boundaries []Boundary) int {
	if len(boundaries) == 0 {
		return -1
	}
	i := sort.Search(len(boundaries), func(i int) bool {
		return boundaries[i].CharOffset > hitStart
	})
	if i == 0 {
		return 0
	}
	return i - 1
}
