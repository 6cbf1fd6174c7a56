package loader

import (
	"fmt"
	"strings"

	"github.com/asticode/go-astisub"
)

// SubtitleLoader reads SRT/VTT/ASS subtitle files, mapping each subtitle
// item to a segment. Supplements the JSON root format (spec.md §4.1) for
// corpora distributed as subtitle tracks rather than raw transcript JSON,
// grounded on the way mooss-sininen's ParseSubtitleFile concatenates
// astisub items into one document string.
type SubtitleLoader struct{}

func (SubtitleLoader) Load(path string) (Result, error) {
	st, err := astisub.OpenFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("loader: opening subtitle file %s: %w", path, err)
	}
	if len(st.Items) == 0 {
		return Result{}, fmt.Errorf("loader: %s: no subtitle items", path)
	}

	texts := make([]string, len(st.Items))
	segs := make([]Segment, len(st.Items))
	for i, item := range st.Items {
		texts[i] = subtitleItemText(item)
	}
	full, offsets := concatenate(texts)

	for i, item := range st.Items {
		segs[i] = Segment{
			Text:       texts[i],
			Start:      item.StartAt.Seconds(),
			End:        item.EndAt.Seconds(),
			CharOffset: offsets[i],
		}
	}

	return Result{
		FullText: full,
		Segments: segs,
		Episode:  SplitEpisode(path),
	}, nil
}

func subtitleItemText(item *astisub.Item) string {
	var sb strings.Builder
	for i, line := range item.Lines {
		if i > 0 {
			sb.WriteRune(' ')
		}
		for j, litem := range line.Items {
			if j > 0 {
				sb.WriteRune(' ')
			}
			sb.WriteString(litem.Text)
		}
	}
	return sb.String()
}
