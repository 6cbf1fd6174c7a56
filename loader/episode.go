package loader

import (
	"path/filepath"
	"regexp"
	"strings"
)

// EpisodeInfo is the (source, episode, episode_date, episode_title) tuple
// spec.md §3 derives from a transcript's path.
type EpisodeInfo struct {
	Source       string
	Episode      string
	EpisodeDate  string // ISO YYYY-MM-DD, empty if the leaf didn't parse
	EpisodeTitle string
}

// dateLeafPattern matches "YYYY.MM.DD Title" or "YYYY-MM-DD Title" at the
// start of the trailing path component (spec.md §3).
var dateLeafPattern = regexp.MustCompile(`^(\d{4})[.\-](\d{2})[.\-](\d{2})\s*(.*)$`)

// SplitEpisode extracts episode metadata from a transcript path the way the
// Python original's TranscriptIndex.split_episode does: the episode string
// is the path with its extension stripped, the source is everything before
// the last "/", and the trailing component is matched against the date
// pattern to split date from title.
func SplitEpisode(path string) EpisodeInfo {
	episode := strings.TrimSuffix(path, filepath.Ext(path))
	episode = filepath.ToSlash(episode)

	source := ""
	leaf := episode
	if i := strings.LastIndex(episode, "/"); i >= 0 {
		source = episode[:i]
		leaf = episode[i+1:]
	}
	leaf = strings.TrimSpace(leaf)

	m := dateLeafPattern.FindStringSubmatch(leaf)
	if m == nil {
		return EpisodeInfo{Source: source, Episode: episode, EpisodeTitle: leaf}
	}

	return EpisodeInfo{
		Source:       source,
		Episode:      episode,
		EpisodeDate:  m[1] + "-" + m[2] + "-" + m[3],
		EpisodeTitle: strings.TrimSpace(m[4]),
	}
}
