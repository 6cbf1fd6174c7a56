// Package tavla is the Search Service (spec.md §4.7): the single entry
// point that orchestrates the Query Planner, the Index Store, the Segment
// Resolver, and the Position Classifier into search() and segment()
// (spec.md §6). The shape mirrors the teacher's goreason.Engine interface
// and functional-options pattern (goreason.go).
package tavla

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ivrit-ai/tavla/classify"
	"github.com/ivrit-ai/tavla/query"
	"github.com/ivrit-ai/tavla/resolver"
	"github.com/ivrit-ai/tavla/store"
)

// Engine is the Search Service's contract (spec.md §4.7, §6).
type Engine interface {
	// Search runs query under mode, returning hits in candidate (ascending
	// doc_id) then in-document (ascending char_offset) order. Hits carry no
	// segment or document metadata; Segment resolves that per hit.
	Search(ctx context.Context, q string, mode query.Mode, opts ...SearchOption) ([]Hit, error)

	// Segment resolves a single hit's containing segment record.
	Segment(ctx context.Context, h Hit) (SegmentRecord, error)

	// BatchSegmentsByOffsets resolves (doc_id, char_offset) pairs aligned
	// to the input order; an entry with no resolving segment is nil.
	BatchSegmentsByOffsets(ctx context.Context, pairs []OffsetPair) ([]*SegmentRecord, error)

	// BatchSegmentsByIDs resolves (doc_id, seg_idx) pairs aligned to the
	// input order; an entry with no resolving segment is nil.
	BatchSegmentsByIDs(ctx context.Context, pairs []store.SegmentIDPair) ([]*SegmentRecord, error)

	// ResolveEpisodeByUUID resolves a document's episode path from its
	// externally visible UUID, for the audio-serving collaborator.
	ResolveEpisodeByUUID(ctx context.Context, uuid string) (string, error)

	// Store returns the underlying store for diagnostic access.
	Store() *store.Store

	// Close shuts down the engine.
	Close() error
}

// Hit is a single verified match: a (doc_id, char_offset) pair plus the
// span length and position labels computed against the containing
// document (spec.md §3, §4.6).
type Hit struct {
	DocID      int64            `json:"doc_id"`
	CharOffset int              `json:"char_offset"`
	MatchLen   int              `json:"match_len"`
	Positions  []classify.Label `json:"positions,omitempty"`
}

// OffsetPair identifies a hit by (doc_id, char_offset) for batch lookup.
type OffsetPair struct {
	DocID      int64
	CharOffset int
}

// SegmentRecord is the enriched segment spec.md §3 calls "Segment record
// (returned)": episode_idx (= doc_id), seg_idx, text, times, plus the
// document metadata a caller needs to render a hit.
type SegmentRecord struct {
	EpisodeIdx   int64   `json:"episode_idx"`
	SegIdx       int     `json:"seg_idx"`
	Text         string  `json:"text"`
	StartSec     float64 `json:"start_sec"`
	EndSec       float64 `json:"end_sec"`
	Source       string  `json:"source"`
	Episode      string  `json:"episode"`
	EpisodeTitle string  `json:"episode_title"`
	EpisodeDate  string  `json:"episode_date"`
	UUID         string  `json:"uuid"`
}

// SearchOption configures a single Search call, mirroring the teacher's
// IngestOption/QueryOption pattern.
type SearchOption func(*searchOptions)

type searchOptions struct {
	dateFrom        string
	dateTo          string
	sources         []string
	ignorePunct     bool
	positionFilters map[classify.Label]bool
	maxResults      int
}

// WithDateRange restricts results to documents whose episode_date falls in
// [from, to] inclusive. Either bound may be left empty.
func WithDateRange(from, to string) SearchOption {
	return func(o *searchOptions) { o.dateFrom = from; o.dateTo = to }
}

// WithSources restricts results to documents whose source is in sources.
func WithSources(sources []string) SearchOption {
	return func(o *searchOptions) { o.sources = append([]string(nil), sources...) }
}

// WithIgnorePunct enables the punctuation-tolerant verification pattern
// (spec.md §4.4).
func WithIgnorePunct() SearchOption {
	return func(o *searchOptions) { o.ignorePunct = true }
}

// WithPositionFilters keeps only hits whose classified label set
// intersects labels (spec.md §4.4's optional post-filter).
func WithPositionFilters(labels ...classify.Label) SearchOption {
	return func(o *searchOptions) {
		if len(labels) == 0 {
			return
		}
		o.positionFilters = make(map[classify.Label]bool, len(labels))
		for _, l := range labels {
			o.positionFilters[l] = true
		}
	}
}

// WithMaxResults caps the number of hits returned. Zero means unbounded.
func WithMaxResults(n int) SearchOption {
	return func(o *searchOptions) { o.maxResults = n }
}

// engine is the concrete Engine implementation.
type engine struct {
	cfg   Config
	store *store.Store
	cache *query.Cache
}

// New opens the store at cfg.StorePath read-only and constructs a Search
// Service over it (spec.md §5: "the store is read-only and may be opened
// by multiple reader threads concurrently").
func New(cfg Config) (Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s, err := store.OpenReadOnly(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("tavla: opening store: %w", err)
	}
	return &engine{
		cfg:   cfg,
		store: s,
		cache: query.NewCache(cfg.RegexCacheSize),
	}, nil
}

// Search implements the state machine from spec.md §4.7: Planned ->
// Candidates Fetched -> Verified -> Position-Filtered -> Returned.
func (e *engine) Search(ctx context.Context, q string, mode query.Mode, opts ...SearchOption) ([]Hit, error) {
	options := &searchOptions{maxResults: -1}
	for _, o := range opts {
		o(options)
	}

	// Planned.
	plan := query.BuildCached(e.cache, q, mode, options.ignorePunct)
	if plan.ZeroHits {
		return nil, nil
	}

	filters := store.FilterSet{DateFrom: options.dateFrom, DateTo: options.dateTo, Sources: options.sources}

	// Candidates Fetched.
	var (
		candidates []store.CandidateDoc
		err        error
	)
	if plan.FullScan {
		candidates, err = e.store.AllCandidates(ctx, filters)
	} else {
		candidates, err = e.store.FTSCandidates(ctx, plan.FTSQuery, filters)
	}
	if err != nil {
		return nil, fmt.Errorf("tavla: fetching candidates: %w", err)
	}

	// Verified.
	var hits []Hit
	for _, c := range candidates {
		matches := plan.Verify(c.FullText)
		for _, m := range matches {
			hits = append(hits, Hit{DocID: c.DocID, CharOffset: m.Start, MatchLen: m.End - m.Start})
		}
	}

	// Position-Filtered.
	if options.positionFilters != nil {
		hits, err = e.filterByPosition(ctx, hits, options.positionFilters)
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].DocID != hits[j].DocID {
			return hits[i].DocID < hits[j].DocID
		}
		return hits[i].CharOffset < hits[j].CharOffset
	})

	if options.maxResults > 0 && len(hits) > options.maxResults {
		hits = hits[:options.maxResults]
	}
	return hits, nil
}

// filterByPosition classifies every hit against its document's segment
// boundaries and keeps only those whose label set intersects wanted
// (spec.md §4.4). Boundaries are fetched and cached per document so a
// document with many hits pays one segment-boundary query.
func (e *engine) filterByPosition(ctx context.Context, hits []Hit, wanted map[classify.Label]bool) ([]Hit, error) {
	boundaryCache := make(map[int64]resolver.Boundaries)
	textCache := make(map[int64]string)

	out := hits[:0:0]
	for _, h := range hits {
		b, ok := boundaryCache[h.DocID]
		if !ok {
			boundaries, text, berr := e.documentBoundaries(ctx, h.DocID)
			if berr != nil {
				return nil, berr
			}
			b = boundaries
			boundaryCache[h.DocID] = b
			textCache[h.DocID] = text
		}
		labels := classify.Classify(h.CharOffset, h.CharOffset+h.MatchLen, textCache[h.DocID], b.All())
		for _, l := range labels {
			if wanted[l] {
				h.Positions = labels
				out = append(out, h)
				break
			}
		}
	}
	return out, nil
}

// documentBoundaries loads a document's full text and per-segment
// boundaries for the in-memory classifier fast path (spec.md §4.5).
func (e *engine) documentBoundaries(ctx context.Context, docID int64) (resolver.Boundaries, string, error) {
	text, err := e.store.GetDocumentText(ctx, docID)
	if err != nil {
		return resolver.Boundaries{}, "", fmt.Errorf("tavla: loading document text: %w", err)
	}

	segs, err := e.store.GetSegmentsForDocument(ctx, docID)
	if err != nil {
		return resolver.Boundaries{}, "", fmt.Errorf("tavla: loading segment boundaries: %w", err)
	}
	bounds := make([]classify.Boundary, len(segs))
	for i, s := range segs {
		bounds[i] = classify.Boundary{CharOffset: s.CharOffset, Len: len(s.Text)}
	}
	return resolver.NewBoundaries(bounds), text, nil
}

// Segment resolves one hit's containing segment, enriched with its
// document's metadata.
func (e *engine) Segment(ctx context.Context, h Hit) (SegmentRecord, error) {
	seg, err := e.store.GetSegmentAtOffset(ctx, h.DocID, h.CharOffset)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return SegmentRecord{}, ErrSegmentNotFound
		}
		return SegmentRecord{}, err
	}
	return e.enrich(ctx, h.DocID, seg)
}

// BatchSegmentsByOffsets resolves a batch of (doc_id, char_offset) hits,
// aligned to pairs' order (spec.md §8: "batch alignment").
func (e *engine) BatchSegmentsByOffsets(ctx context.Context, pairs []OffsetPair) ([]*SegmentRecord, error) {
	out := make([]*SegmentRecord, len(pairs))
	infoCache := make(map[int64]store.Document)
	for i, p := range pairs {
		seg, err := e.store.GetSegmentAtOffset(ctx, p.DocID, p.CharOffset)
		if err != nil {
			continue
		}
		info, ok := infoCache[p.DocID]
		if !ok {
			var ierr error
			info, ierr = e.store.GetDocumentInfo(ctx, p.DocID)
			if ierr != nil {
				continue
			}
			infoCache[p.DocID] = info
		}
		rec := toSegmentRecord(info, seg)
		out[i] = &rec
	}
	return out, nil
}

// BatchSegmentsByIDs resolves a batch of (doc_id, segment_id) pairs,
// aligned to pairs' order. The store's batch query collapses duplicates
// and reorders by (doc_id, segment_id), so results are matched back to
// the caller's order here.
func (e *engine) BatchSegmentsByIDs(ctx context.Context, pairs []store.SegmentIDPair) ([]*SegmentRecord, error) {
	segs, err := e.store.GetSegmentsByIDs(ctx, pairs)
	if err != nil {
		return nil, err
	}
	byKey := make(map[store.SegmentIDPair]store.Segment, len(segs))
	for _, s := range segs {
		byKey[store.SegmentIDPair{DocID: s.DocID, SegmentID: s.SegmentID}] = s
	}

	out := make([]*SegmentRecord, len(pairs))
	infoCache := make(map[int64]store.Document)
	for i, p := range pairs {
		seg, ok := byKey[p]
		if !ok {
			continue
		}
		info, cached := infoCache[p.DocID]
		if !cached {
			var ierr error
			info, ierr = e.store.GetDocumentInfo(ctx, p.DocID)
			if ierr != nil {
				continue
			}
			infoCache[p.DocID] = info
		}
		rec := toSegmentRecord(info, seg)
		out[i] = &rec
	}
	return out, nil
}

// ResolveEpisodeByUUID resolves a document's episode path from its
// externally visible UUID (spec.md §6, for the audio-serving collaborator).
func (e *engine) ResolveEpisodeByUUID(ctx context.Context, uuid string) (string, error) {
	episode, err := e.store.GetEpisodeByUUID(ctx, uuid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUUIDNotFound
		}
		return "", err
	}
	return episode, nil
}

// Store returns the underlying store for diagnostic access.
func (e *engine) Store() *store.Store { return e.store }

// Close shuts down the engine.
func (e *engine) Close() error { return e.store.Close() }

func (e *engine) enrich(ctx context.Context, docID int64, seg store.Segment) (SegmentRecord, error) {
	info, err := e.store.GetDocumentInfo(ctx, docID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return SegmentRecord{}, ErrDocumentNotFound
		}
		return SegmentRecord{}, err
	}
	return toSegmentRecord(info, seg), nil
}

func toSegmentRecord(info store.Document, seg store.Segment) SegmentRecord {
	return SegmentRecord{
		EpisodeIdx:   info.DocID,
		SegIdx:       seg.SegmentID,
		Text:         seg.Text,
		StartSec:     seg.StartTime,
		EndSec:       seg.EndTime,
		Source:       info.Source,
		Episode:      info.Episode,
		EpisodeTitle: info.EpisodeTitle,
		EpisodeDate:  info.EpisodeDate,
		UUID:         info.UUID,
	}
}
