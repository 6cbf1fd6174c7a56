//go:build cgo

package tavla

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ivrit-ai/tavla/classify"
	"github.com/ivrit-ai/tavla/query"
	"github.com/ivrit-ai/tavla/store"
)

func buildTestStore(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(dbPath, true)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}

	docs := []store.ParsedDocument{
		{
			Source: "podcastA", Episode: "podcastA/2024.01.01 Episode One", EpisodeDate: "2024-01-01", EpisodeTitle: "Episode One",
			FullText: "שלום עולם",
			Segments: []store.ParsedSegment{
				{SegmentID: 0, Text: "שלום", CharOffset: 0, StartTime: 0, EndTime: 1},
				{SegmentID: 1, Text: "עולם", CharOffset: 5, StartTime: 1, EndTime: 2},
			},
		},
		{
			Source: "podcastB", Episode: "podcastB/2024.06.15 Episode Two", EpisodeDate: "2024-06-15", EpisodeTitle: "Episode Two",
			FullText: "בוקר טוב לכולם",
			Segments: []store.ParsedSegment{
				{SegmentID: 0, Text: "בוקר טוב", CharOffset: 0, StartTime: 0, EndTime: 2},
				{SegmentID: 1, Text: "לכולם", CharOffset: 9, StartTime: 2, EndTime: 3},
			},
		},
	}

	files := make([]string, len(docs))
	for i := range docs {
		files[i] = docs[i].Episode
	}
	parse := func(ctx context.Context, path string, docID int64) (store.ParsedDocument, error) {
		for _, d := range docs {
			if d.Episode == path {
				d.DocID = docID
				return d, nil
			}
		}
		t.Fatalf("unexpected path %q", path)
		return store.ParsedDocument{}, nil
	}

	if err := s.Build(context.Background(), files, parse, store.BulkWriterConfig{Parallelism: 1, QueueSize: 4, DocsPerTx: 2}); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close after build: %v", err)
	}
	return dbPath
}

func newTestEngine(t *testing.T) Engine {
	t.Helper()
	dbPath := buildTestStore(t)
	cfg := DefaultConfig()
	cfg.StorePath = dbPath
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestSearchExactModeFindsWholeWord(t *testing.T) {
	e := newTestEngine(t)
	hits, err := e.Search(context.Background(), "שלום", query.Exact())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1: %+v", len(hits), hits)
	}
	if hits[0].DocID != 0 || hits[0].CharOffset != 0 {
		t.Errorf("hit = %+v, want doc 0 at offset 0", hits[0])
	}
}

func TestSearchWithDateRangeFilter(t *testing.T) {
	e := newTestEngine(t)
	hits, err := e.Search(context.Background(), "בוקר", query.Partial(), WithDateRange("2024-06-01", "2024-12-31"))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].DocID != 1 {
		t.Fatalf("expected a single hit in doc 1, got %+v", hits)
	}

	hits, err = e.Search(context.Background(), "בוקר", query.Partial(), WithDateRange("2023-01-01", "2023-12-31"))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("date range excluding the matching episode should yield no hits, got %+v", hits)
	}
}

func TestSearchWithSourceFilter(t *testing.T) {
	e := newTestEngine(t)
	hits, err := e.Search(context.Background(), "עולם", query.Exact(), WithSources([]string{"podcastB"}))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("source filter should exclude doc 0's match, got %+v", hits)
	}
}

func TestSearchPositionFilterStart(t *testing.T) {
	e := newTestEngine(t)
	hits, err := e.Search(context.Background(), "שלום", query.Exact(), WithPositionFilters(classify.Start))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1 (שלום sits at the start of its segment)", len(hits))
	}
	if len(hits[0].Positions) == 0 {
		t.Errorf("hit should carry resolved positions: %+v", hits[0])
	}

	hits, err = e.Search(context.Background(), "שלום", query.Exact(), WithPositionFilters(classify.Cross))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("שלום does not cross a segment boundary, want no hits, got %+v", hits)
	}
}

func TestSearchZeroHitsForEmptyQuery(t *testing.T) {
	e := newTestEngine(t)
	hits, err := e.Search(context.Background(), "", query.Exact())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if hits != nil {
		t.Errorf("empty query should yield no hits, got %+v", hits)
	}
}

func TestSegmentResolvesOffsetToContainingSegment(t *testing.T) {
	e := newTestEngine(t)
	rec, err := e.Segment(context.Background(), Hit{DocID: 0, CharOffset: 6})
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	if rec.SegIdx != 1 || rec.Text != "עולם" {
		t.Errorf("segment = %+v, want seg_idx 1 text עולם", rec)
	}
	if rec.Source != "podcastA" || rec.EpisodeDate != "2024-01-01" {
		t.Errorf("segment metadata not enriched correctly: %+v", rec)
	}
}

func TestBatchSegmentsByOffsetsAlignsWithInput(t *testing.T) {
	e := newTestEngine(t)
	pairs := []OffsetPair{{DocID: 0, CharOffset: 0}, {DocID: 1, CharOffset: 9}}
	recs, err := e.BatchSegmentsByOffsets(context.Background(), pairs)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(recs) != len(pairs) {
		t.Fatalf("got %d records, want %d (alignment with input)", len(recs), len(pairs))
	}
	if recs[0] == nil || recs[0].Text != "שלום" {
		t.Errorf("recs[0] = %+v, want שלום", recs[0])
	}
	if recs[1] == nil || recs[1].Text != "לכולם" {
		t.Errorf("recs[1] = %+v, want לכולם", recs[1])
	}
}

func TestResolveEpisodeByUUID(t *testing.T) {
	e := newTestEngine(t)
	info, err := e.Store().GetDocumentInfo(context.Background(), 0)
	if err != nil {
		t.Fatalf("document info: %v", err)
	}
	episode, err := e.ResolveEpisodeByUUID(context.Background(), info.UUID)
	if err != nil {
		t.Fatalf("resolve by uuid: %v", err)
	}
	if episode != "podcastA/2024.01.01 Episode One" {
		t.Errorf("episode = %q", episode)
	}
}
