// Package resolver implements the in-memory fast path of the Segment
// Resolver (spec.md §4.5): a per-document index of segment boundaries that
// lets the Query Planner and Position Classifier locate a hit's containing
// segment with a binary search instead of a round-trip to the store. The
// store-backed lookups (GetSegmentAtOffset, GetSegmentsByIDs) live in
// package store; this package is the pure, allocation-light counterpart
// used on the hot verification path.
//
// Grounded on mooss-sininen's locateSegment (search.go): the same
// binary-search-over-sorted-offsets idiom, applied to the same
// transcript-segment domain.
package resolver

import (
	"sort"

	"github.com/ivrit-ai/tavla/classify"
)

// Boundaries is the "seg_boundaries"/"seg_offsets" fast path from spec.md
// §4.5: segment char offsets and lengths for one document, sorted
// ascending by CharOffset.
type Boundaries struct {
	segs []classify.Boundary
}

// NewBoundaries builds a Boundaries index from a document's segments, given
// in segment_id order. The caller is responsible for supplying them in
// that order; this constructor does not re-sort by segment_id, only relies
// on char_offset already being monotonically increasing across segments.
func NewBoundaries(segs []classify.Boundary) Boundaries {
	out := make([]classify.Boundary, len(segs))
	copy(out, segs)
	return Boundaries{segs: out}
}

// Len returns the number of segments indexed.
func (b Boundaries) Len() int { return len(b.segs) }

// SegmentIndexFor returns the 0-based segment_id containing offset: the
// largest index whose CharOffset <= offset, clamped to >= 0 (spec.md §4.5:
// "bisect_right(seg_offsets, h) - 1 clamped to >= 0"). Returns -1 only when
// the document has no segments at all.
func (b Boundaries) SegmentIndexFor(offset int) int {
	if len(b.segs) == 0 {
		return -1
	}
	i := sort.Search(len(b.segs), func(i int) bool {
		return b.segs[i].CharOffset > offset
	})
	if i == 0 {
		return 0
	}
	return i - 1
}

// At returns the boundary for segment_id idx.
func (b Boundaries) At(idx int) classify.Boundary { return b.segs[idx] }

// All returns the full boundary slice, in segment_id order, for callers
// (e.g. the Position Classifier) that need the whole set rather than a
// single lookup.
func (b Boundaries) All() []classify.Boundary { return b.segs }
