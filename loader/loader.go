// Package loader implements the Transcript Loader (spec.md §4.1): it reads
// one input file and returns a reconstructed full text, its per-segment
// offsets, and the episode metadata extracted from the file's path.
package loader

// Segment is one parsed segment, before doc_id is known.
type Segment struct {
	Text       string
	Start      float64
	End        float64
	CharOffset int
	AvgLogprob *float64
}

// Result is the (full_text, segments, metadata) tuple spec.md §4.1 returns.
type Result struct {
	FullText string
	Segments []Segment
	Episode  EpisodeInfo
}

// Loader parses one transcript file into a Result. Errors are InputErrors
// per spec.md §4.1 and are handled by the caller as a per-file skip.
type Loader interface {
	Load(path string) (Result, error)
}

// concatenate joins segment texts with a single space and computes the
// running-cursor char_offset for each, per spec.md §3: "char_offset[0]=0;
// char_offset[k+1] = char_offset[k] + len(text[k]) + 1".
func concatenate(texts []string) (string, []int) {
	offsets := make([]int, len(texts))
	cursor := 0
	for i, t := range texts {
		offsets[i] = cursor
		cursor += len(t) + 1
	}
	var full string
	if len(texts) > 0 {
		full = joinWithSpace(texts)
	}
	return full, offsets
}

func joinWithSpace(texts []string) string {
	n := len(texts) - 1
	total := n
	for _, t := range texts {
		total += len(t)
	}
	buf := make([]byte, 0, total)
	for i, t := range texts {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, t...)
	}
	return string(buf)
}
