package loader

import (
	"encoding/json"
	"fmt"
	"os"
)

// rawSegment mirrors one entry of the transcript JSON's "segments" array
// (spec.md §4.1): "text", "start", "end" are required, "avg_logprob" is
// optional.
type rawSegment struct {
	Text       string   `json:"text"`
	Start      *float64 `json:"start"`
	End        *float64 `json:"end"`
	AvgLogprob *float64 `json:"avg_logprob"`
}

// rawDocument covers the `{"segments": [...]}` root shape. A bare JSON
// array `[...]` of rawSegment is the other accepted root shape.
type rawDocument struct {
	Segments []rawSegment `json:"segments"`
}

// JSONLoader reads the root transcript format: a JSON object with a
// "segments" array, or a bare JSON array of segments.
type JSONLoader struct{}

func (JSONLoader) Load(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("loader: reading %s: %w", path, err)
	}

	segs, err := decodeSegments(data)
	if err != nil {
		return Result{}, fmt.Errorf("loader: %s: %w", path, err)
	}
	if len(segs) == 0 {
		return Result{}, fmt.Errorf("loader: %s: no segments", path)
	}
	for _, s := range segs {
		if s.Text == "" {
			return Result{}, fmt.Errorf("loader: %s: empty segment text", path)
		}
		if s.Start == nil || s.End == nil {
			return Result{}, fmt.Errorf("loader: %s: segment missing start or end", path)
		}
		if *s.End < *s.Start {
			return Result{}, fmt.Errorf("loader: %s: segment end before start", path)
		}
	}

	texts := make([]string, len(segs))
	for i, s := range segs {
		texts[i] = s.Text
	}
	full, offsets := concatenate(texts)

	out := make([]Segment, len(segs))
	for i, s := range segs {
		out[i] = Segment{
			Text:       s.Text,
			Start:      *s.Start,
			End:        *s.End,
			CharOffset: offsets[i],
			AvgLogprob: s.AvgLogprob,
		}
	}

	return Result{
		FullText: full,
		Segments: out,
		Episode:  SplitEpisode(path),
	}, nil
}

// decodeSegments accepts either root shape spec.md §4.1 allows. Anything
// else is rejected with a plain error; it does not wrap a sentinel error
// value, so callers cannot tell it apart with errors.Is.
func decodeSegments(data []byte) ([]rawSegment, error) {
	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err == nil && doc.Segments != nil {
		return doc.Segments, nil
	}

	var bare []rawSegment
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}

	return nil, fmt.Errorf("unrecognised transcript JSON structure")
}
