package classify

import "testing"

// A three-word segment lets Start, End, and "neither" be told apart: only
// the first word is {start}, only the last word is {end}, and a match
// strictly inside is neither.
func threeWordSegment() (string, []Boundary) {
	fullText := "שלום עולם טוב"
	return fullText, []Boundary{{CharOffset: 0, Len: len(fullText)}}
}

func TestClassifyFirstWordIsStartOnly(t *testing.T) {
	fullText, bounds := threeWordSegment()
	matchLen := len("שלום")
	labels := Classify(0, matchLen, fullText, bounds)
	if !hasLabel(labels, Start) {
		t.Errorf("first word: got %v, want start present", labels)
	}
	if hasLabel(labels, End) || hasLabel(labels, Cross) {
		t.Errorf("first word: got %v, want no end/cross", labels)
	}
}

func TestClassifyLastWordIsEndOnly(t *testing.T) {
	fullText, bounds := threeWordSegment()
	start := len("שלום עולם ")
	end := start + len("טוב")
	labels := Classify(start, end, fullText, bounds)
	if !hasLabel(labels, End) {
		t.Errorf("last word: got %v, want end present", labels)
	}
	if hasLabel(labels, Start) || hasLabel(labels, Cross) {
		t.Errorf("last word: got %v, want no start/cross", labels)
	}
}

func TestClassifyMiddleWordHasNoLabels(t *testing.T) {
	fullText, bounds := threeWordSegment()
	start := len("שלום ")
	end := start + len("עולם")
	labels := Classify(start, end, fullText, bounds)
	if hasLabel(labels, Start) || hasLabel(labels, End) || hasLabel(labels, Cross) {
		t.Errorf("middle word: got %v, want no labels", labels)
	}
}

func TestClassifySingleWordSegmentBothLabels(t *testing.T) {
	// A match spanning an entire single-word segment is both its first
	// and last word at once, so it gets {start, end}.
	fullText := "שלום"
	bounds := []Boundary{{CharOffset: 0, Len: len("שלום")}}

	labels := Classify(0, len("שלום"), fullText, bounds)
	if !hasLabel(labels, Start) || !hasLabel(labels, End) {
		t.Errorf("whole single-word segment: got %v, want {start, end}", labels)
	}
}

func TestClassifyCross(t *testing.T) {
	// Two adjacent single-word segments; a match spanning both is {cross}
	// for the segment it starts in.
	fullText := "שלום עולם"
	bounds := []Boundary{
		{CharOffset: 0, Len: len("שלום")},
		{CharOffset: len("שלום") + 1, Len: len("עולם")},
	}

	labels := Classify(0, len(fullText), fullText, bounds)
	if !hasLabel(labels, Cross) {
		t.Errorf("match spanning both segments: got %v, want cross present", labels)
	}
}

func TestClassifyEmptyBoundariesReturnsNil(t *testing.T) {
	if got := Classify(0, 3, "abc", nil); got != nil {
		t.Errorf("Classify with no boundaries = %v, want nil", got)
	}
}

func hasLabel(labels []Label, want Label) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}
