//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath, false)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDoc(docID int64, source, episode, title, fullText string, segs []ParsedSegment) ParsedDocument {
	return ParsedDocument{
		DocID:        docID,
		Source:       source,
		Episode:      episode,
		EpisodeDate:  "2024-01-01",
		EpisodeTitle: title,
		FullText:     fullText,
		Segments:     segs,
	}
}

func buildOne(t *testing.T, s *Store, doc ParsedDocument) {
	t.Helper()
	files := []string{"irrelevant"}
	parse := func(ctx context.Context, path string, docID int64) (ParsedDocument, error) {
		d := doc
		d.DocID = docID
		return d, nil
	}
	if err := s.Build(context.Background(), files, parse, BulkWriterConfig{Parallelism: 1, QueueSize: 4, DocsPerTx: 1}); err != nil {
		t.Fatalf("build: %v", err)
	}
}

func TestOpenRefusesExistingStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath, false)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s.Close()

	if _, err := Open(dbPath, true); err != ErrStoreExists {
		t.Fatalf("expected ErrStoreExists, got %v", err)
	}
}

func TestBuildAndGetDocumentText(t *testing.T) {
	s := newTestStore(t)
	segs := []ParsedSegment{
		{SegmentID: 0, Text: "שלום", CharOffset: 0, StartTime: 0, EndTime: 1},
		{SegmentID: 1, Text: "עולם", CharOffset: 5, StartTime: 1, EndTime: 2},
	}
	buildOne(t, s, sampleDoc(0, "podcastA", "podcastA/2024.01.01 Episode", "Episode", "שלום עולם", segs))

	text, err := s.GetDocumentText(context.Background(), 0)
	if err != nil {
		t.Fatalf("get document text: %v", err)
	}
	if text != "שלום עולם" {
		t.Errorf("full text: got %q", text)
	}
}

func TestGetDocumentInfo(t *testing.T) {
	s := newTestStore(t)
	buildOne(t, s, sampleDoc(0, "podcastA", "podcastA/2024.01.01 Episode", "Episode", "שלום", nil))

	info, err := s.GetDocumentInfo(context.Background(), 0)
	if err != nil {
		t.Fatalf("get document info: %v", err)
	}
	if info.Source != "podcastA" {
		t.Errorf("source: got %q", info.Source)
	}
	if info.UUID == "" {
		t.Error("expected non-empty uuid")
	}
}

func TestGetDocumentInfoNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetDocumentInfo(context.Background(), 99); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetEpisodeByUUID(t *testing.T) {
	s := newTestStore(t)
	buildOne(t, s, sampleDoc(0, "podcastA", "podcastA/2024.01.01 Episode", "Episode", "שלום", nil))

	info, err := s.GetDocumentInfo(context.Background(), 0)
	if err != nil {
		t.Fatalf("get info: %v", err)
	}
	episode, err := s.GetEpisodeByUUID(context.Background(), info.UUID)
	if err != nil {
		t.Fatalf("get episode by uuid: %v", err)
	}
	if episode != "podcastA/2024.01.01 Episode" {
		t.Errorf("episode: got %q", episode)
	}
}

func TestGetSegmentAtOffset(t *testing.T) {
	s := newTestStore(t)
	segs := []ParsedSegment{
		{SegmentID: 0, Text: "שלום", CharOffset: 0, StartTime: 0, EndTime: 1},
		{SegmentID: 1, Text: "עולם", CharOffset: 5, StartTime: 1, EndTime: 2},
	}
	buildOne(t, s, sampleDoc(0, "podcastA", "podcastA/2024.01.01 Episode", "Episode", "שלום עולם", segs))

	seg, err := s.GetSegmentAtOffset(context.Background(), 0, 5)
	if err != nil {
		t.Fatalf("get segment at offset: %v", err)
	}
	if seg.SegmentID != 1 {
		t.Errorf("expected segment 1, got %d", seg.SegmentID)
	}

	seg, err = s.GetSegmentAtOffset(context.Background(), 0, 4)
	if err != nil {
		t.Fatalf("get segment at offset 4: %v", err)
	}
	if seg.SegmentID != 0 {
		t.Errorf("expected segment 0, got %d", seg.SegmentID)
	}
}

func TestGetSegmentAtOffsetNotFound(t *testing.T) {
	s := newTestStore(t)
	buildOne(t, s, sampleDoc(0, "podcastA", "podcastA/2024.01.01 Episode", "Episode", "שלום", nil))

	if _, err := s.GetSegmentAtOffset(context.Background(), 0, 0); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetSegmentsByIDs(t *testing.T) {
	s := newTestStore(t)
	segs := []ParsedSegment{
		{SegmentID: 0, Text: "שלום", CharOffset: 0, StartTime: 0, EndTime: 1},
		{SegmentID: 1, Text: "עולם", CharOffset: 5, StartTime: 1, EndTime: 2},
	}
	buildOne(t, s, sampleDoc(0, "podcastA", "podcastA/2024.01.01 Episode", "Episode", "שלום עולם", segs))

	got, err := s.GetSegmentsByIDs(context.Background(), []SegmentIDPair{{DocID: 0, SegmentID: 1}, {DocID: 0, SegmentID: 0}})
	if err != nil {
		t.Fatalf("get segments by ids: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(got))
	}
	// Ordered by (doc_id, segment_id), not input order.
	if got[0].SegmentID != 0 || got[1].SegmentID != 1 {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestGetSegmentsByIDsEmpty(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetSegmentsByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestFTSCandidates(t *testing.T) {
	s := newTestStore(t)
	buildOne(t, s, sampleDoc(0, "podcastA", "podcastA/2024.01.01 Episode", "Episode", "שלום עולם", nil))

	candidates, err := s.FTSCandidates(context.Background(), `"שלום"`, FilterSet{})
	if err != nil {
		t.Fatalf("fts candidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].FullText != "שלום עולם" {
		t.Errorf("full text: got %q", candidates[0].FullText)
	}
}

func TestFTSCandidatesDateFilter(t *testing.T) {
	s := newTestStore(t)

	parse := func(ctx context.Context, path string, id int64) (ParsedDocument, error) {
		dates := map[string]string{"a": "2024-01-01", "b": "2024-06-01"}
		return ParsedDocument{DocID: id, Source: "p", Episode: path, EpisodeDate: dates[path], EpisodeTitle: "t", FullText: "שלום"}, nil
	}
	if err := s.Build(context.Background(), []string{"a", "b"}, parse, BulkWriterConfig{Parallelism: 1, QueueSize: 4, DocsPerTx: 1}); err != nil {
		t.Fatalf("build: %v", err)
	}

	candidates, err := s.FTSCandidates(context.Background(), `"שלום"`, FilterSet{DateFrom: "2024-03-01"})
	if err != nil {
		t.Fatalf("fts candidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate after date filter, got %d", len(candidates))
	}
}

func TestAllCandidates(t *testing.T) {
	s := newTestStore(t)
	buildOne(t, s, sampleDoc(0, "podcastA", "podcastA/2024.01.01 Episode", "Episode", "שלום עולם", nil))

	candidates, err := s.AllCandidates(context.Background(), FilterSet{})
	if err != nil {
		t.Fatalf("all candidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
}

func TestGetDocumentStats(t *testing.T) {
	s := newTestStore(t)
	buildOne(t, s, sampleDoc(0, "podcastA", "podcastA/2024.01.01 Episode", "Episode", "שלום עולם", nil))

	stats, err := s.GetDocumentStats(context.Background())
	if err != nil {
		t.Fatalf("document stats: %v", err)
	}
	if stats.DocCount != 1 {
		t.Errorf("doc count: got %d", stats.DocCount)
	}
}
