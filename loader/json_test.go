package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempJSON(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestJSONLoaderSegmentsRoot(t *testing.T) {
	path := writeTempJSON(t, "episode.json", `{"segments":[
		{"text":"שלום","start":0,"end":1},
		{"text":"עולם","start":1,"end":2,"avg_logprob":-0.2}
	]}`)

	res, err := JSONLoader{}.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.FullText != "שלום עולם" {
		t.Errorf("full text: got %q", res.FullText)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(res.Segments))
	}
	if res.Segments[0].CharOffset != 0 {
		t.Errorf("segment 0 offset: got %d", res.Segments[0].CharOffset)
	}
	wantOffset := len("שלום") + 1
	if res.Segments[1].CharOffset != wantOffset {
		t.Errorf("segment 1 offset: got %d, want %d", res.Segments[1].CharOffset, wantOffset)
	}
	if res.Segments[1].AvgLogprob == nil || *res.Segments[1].AvgLogprob != -0.2 {
		t.Errorf("avg_logprob: got %v", res.Segments[1].AvgLogprob)
	}
}

func TestJSONLoaderBareListRoot(t *testing.T) {
	path := writeTempJSON(t, "episode.json", `[
		{"text":"hello","start":0,"end":1},
		{"text":"world","start":1,"end":2}
	]`)

	res, err := JSONLoader{}.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.FullText != "hello world" {
		t.Errorf("full text: got %q", res.FullText)
	}
}

func TestJSONLoaderRejectsUnrecognisedRoot(t *testing.T) {
	path := writeTempJSON(t, "episode.json", `{"not_segments": 1}`)

	if _, err := (JSONLoader{}).Load(path); err == nil {
		t.Fatal("expected error for unrecognised root shape")
	}
}

func TestJSONLoaderCharOffsetRoundTrip(t *testing.T) {
	path := writeTempJSON(t, "episode.json", `{"segments":[
		{"text":"one","start":0,"end":1},
		{"text":"two","start":1,"end":2},
		{"text":"three","start":2,"end":3}
	]}`)

	res, err := JSONLoader{}.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, seg := range res.Segments {
		got := res.FullText[seg.CharOffset : seg.CharOffset+len(seg.Text)]
		if got != seg.Text {
			t.Errorf("full_text[%d:%d] = %q, want %q", seg.CharOffset, seg.CharOffset+len(seg.Text), got, seg.Text)
		}
	}
}
