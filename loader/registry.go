package loader

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Registry maps a file extension to the Loader that handles it, mirroring
// the teacher's parser.Registry.
type Registry struct {
	loaders map[string]Loader
}

// NewRegistry returns a Registry with the built-in loaders registered:
// ".json" for the raw transcript format, and ".srt"/".vtt"/".ass"/".ssa"
// for subtitle tracks.
func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[string]Loader)}

	jsonLoader := JSONLoader{}
	r.loaders[".json"] = jsonLoader

	subLoader := SubtitleLoader{}
	for _, ext := range []string{".srt", ".vtt", ".ass", ".ssa"} {
		r.loaders[ext] = subLoader
	}
	return r
}

// Get returns the Loader registered for a file's extension. An unknown
// extension is a per-file InputError (spec.md §4.1).
func (r *Registry) Get(path string) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := r.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("loader: no loader registered for extension %q", ext)
	}
	return l, nil
}

// Register adds or overrides the Loader for a given extension (lowercase,
// including the leading dot, e.g. ".json").
func (r *Registry) Register(ext string, l Loader) {
	r.loaders[strings.ToLower(ext)] = l
}

// Load resolves path's Loader by extension and runs it.
func (r *Registry) Load(path string) (Result, error) {
	l, err := r.Get(path)
	if err != nil {
		return Result{}, err
	}
	return l.Load(path)
}
