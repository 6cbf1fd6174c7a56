package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ivrit-ai/tavla"
	"github.com/ivrit-ai/tavla/classify"
	"github.com/ivrit-ai/tavla/query"
	"github.com/ivrit-ai/tavla/store"
)

// handler wraps the Search Service for the HTTP boundary. HTTP error
// mapping is decided here, not in the core: StoreError -> 5xx, NotFound ->
// 404, QueryEmpty -> 200 with an empty list, PatternError is already
// swallowed upstream into an empty result set (spec.md §7 says the *outer*
// service makes this call).
type handler struct {
	engine tavla.Engine
}

func newHandler(e tavla.Engine) *handler {
	return &handler{engine: e}
}

func mountRoutes(r chi.Router, h *handler) {
	r.Get("/search", h.handleSearch)
	r.Get("/segment", h.handleSegment)
	r.Get("/segments/by-offsets", h.handleSegmentsByOffsets)
	r.Get("/segments/by-ids", h.handleSegmentsByIDs)
	r.Get("/episode/{uuid}", h.handleResolveEpisode)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// searchResponse mirrors spec.md §6's service contract:
// { hits: [Hit], has_more: bool }.
type searchResponse struct {
	Hits    []enrichedHit `json:"hits"`
	HasMore bool          `json:"has_more"`
}

// enrichedHit is spec.md §6's Hit shape: { doc_id, char_offset, segment_id,
// start_sec, end_sec, text, source, episode, episode_title, episode_date,
// uuid }, assembled from a tavla.Hit plus its resolved SegmentRecord.
type enrichedHit struct {
	DocID        int64            `json:"doc_id"`
	CharOffset   int              `json:"char_offset"`
	SegmentID    int              `json:"segment_id"`
	StartSec     float64          `json:"start_sec"`
	EndSec       float64          `json:"end_sec"`
	Text         string           `json:"text"`
	Source       string           `json:"source"`
	Episode      string           `json:"episode"`
	EpisodeTitle string           `json:"episode_title"`
	EpisodeDate  string           `json:"episode_date"`
	UUID         string           `json:"uuid"`
	Positions    []classify.Label `json:"positions,omitempty"`
}

// GET /search?q=...&mode=exact|partial|regex&date_from=&date_to=&source=
// &ignore_punct=&position=start,end&max_results=
func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawQuery := q.Get("q")

	mode, err := parseMode(q.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var opts []tavla.SearchOption
	if from, to := q.Get("date_from"), q.Get("date_to"); from != "" || to != "" {
		opts = append(opts, tavla.WithDateRange(from, to))
	}
	if sources := q["source"]; len(sources) > 0 {
		opts = append(opts, tavla.WithSources(sources))
	}
	if q.Get("ignore_punct") == "true" || q.Get("ignore_punct") == "1" {
		opts = append(opts, tavla.WithIgnorePunct())
	}
	if labels, err := parsePositionFilters(q.Get("position")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	} else if len(labels) > 0 {
		opts = append(opts, tavla.WithPositionFilters(labels...))
	}
	maxResults := 100
	if raw := q.Get("max_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "max_results must be a non-negative integer")
			return
		}
		maxResults = n
	}
	opts = append(opts, tavla.WithMaxResults(maxResults+1))

	start := time.Now()
	hits, err := h.engine.Search(r.Context(), rawQuery, mode, opts...)
	searchDuration.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		searchErrors.WithLabelValues(mode.String()).Inc()
		writeStoreError(w, err)
		return
	}
	searchHits.WithLabelValues(mode.String()).Observe(float64(len(hits)))

	hasMore := len(hits) > maxResults
	if hasMore {
		hits = hits[:maxResults]
	}

	enriched, err := h.enrichHits(r.Context(), hits)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Hits: enriched, HasMore: hasMore})
}

// enrichHits resolves each hit's containing segment and document metadata,
// per spec.md §6's Hit shape. A hit whose segment no longer resolves is
// dropped rather than failing the whole request (spec.md §5: callers are
// expected to batch enrichment for a page of results — one segment SELECT
// per hit at most).
func (h *handler) enrichHits(ctx context.Context, hits []tavla.Hit) ([]enrichedHit, error) {
	out := make([]enrichedHit, 0, len(hits))
	for _, hit := range hits {
		rec, err := h.engine.Segment(ctx, hit)
		if err != nil {
			if errors.Is(err, tavla.ErrSegmentNotFound) || errors.Is(err, tavla.ErrDocumentNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, enrichedHit{
			DocID:        hit.DocID,
			CharOffset:   hit.CharOffset,
			SegmentID:    rec.SegIdx,
			StartSec:     rec.StartSec,
			EndSec:       rec.EndSec,
			Text:         rec.Text,
			Source:       rec.Source,
			Episode:      rec.Episode,
			EpisodeTitle: rec.EpisodeTitle,
			EpisodeDate:  rec.EpisodeDate,
			UUID:         rec.UUID,
			Positions:    hit.Positions,
		})
	}
	return out, nil
}

func (h *handler) handleSegment(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	docID, err := strconv.ParseInt(q.Get("doc_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "doc_id must be an integer")
		return
	}
	offset, err := strconv.Atoi(q.Get("char_offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "char_offset must be an integer")
		return
	}

	rec, err := h.engine.Segment(r.Context(), tavla.Hit{DocID: docID, CharOffset: offset})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GET /segments/by-offsets?pair=docID:offset&pair=docID:offset...
func (h *handler) handleSegmentsByOffsets(w http.ResponseWriter, r *http.Request) {
	pairs, err := parseOffsetPairs(r.URL.Query()["pair"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := h.engine.BatchSegmentsByOffsets(r.Context(), pairs)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"segments": recs})
}

// GET /segments/by-ids?pair=docID:segIdx&pair=docID:segIdx...
func (h *handler) handleSegmentsByIDs(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query()["pair"]
	pairs := make([]store.SegmentIDPair, 0, len(raw))
	for _, p := range raw {
		docID, segIdx, err := splitPair(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		pairs = append(pairs, store.SegmentIDPair{DocID: docID, SegmentID: int(segIdx)})
	}

	recs, err := h.engine.BatchSegmentsByIDs(r.Context(), pairs)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"segments": recs})
}

// GET /episode/{uuid}
func (h *handler) handleResolveEpisode(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")
	episode, err := h.engine.ResolveEpisodeByUUID(r.Context(), uuid)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"episode": episode})
}

func parseMode(raw string) (query.Mode, error) {
	switch strings.ToLower(raw) {
	case "", "exact":
		return query.Exact(), nil
	case "partial":
		return query.Partial(), nil
	case "regex":
		return query.Regex(), nil
	default:
		return query.Mode{}, fmt.Errorf("unknown mode %q: must be exact, partial, or regex", raw)
	}
}

func parsePositionFilters(raw string) ([]classify.Label, error) {
	if raw == "" {
		return nil, nil
	}
	var labels []classify.Label
	for _, part := range strings.Split(raw, ",") {
		switch classify.Label(strings.TrimSpace(part)) {
		case classify.Start:
			labels = append(labels, classify.Start)
		case classify.End:
			labels = append(labels, classify.End)
		case classify.Cross:
			labels = append(labels, classify.Cross)
		default:
			return nil, fmt.Errorf("unknown position filter %q: must be start, end, or cross", part)
		}
	}
	return labels, nil
}

func splitPair(raw string) (int64, int64, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed pair %q: expected docID:index", raw)
	}
	docID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed pair %q: doc_id must be an integer", raw)
	}
	idx, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed pair %q: index must be an integer", raw)
	}
	return docID, idx, nil
}

func parseOffsetPairs(raw []string) ([]tavla.OffsetPair, error) {
	pairs := make([]tavla.OffsetPair, 0, len(raw))
	for _, p := range raw {
		docID, offset, err := splitPair(p)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, tavla.OffsetPair{DocID: docID, CharOffset: int(offset)})
	}
	return pairs, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps the core's error taxonomy (spec.md §7) onto HTTP
// status codes: NotFound -> 404, everything else -> 500. PatternError and
// QueryEmpty never reach here — the core already swallows both into an
// empty result set before returning.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, tavla.ErrDocumentNotFound) ||
		errors.Is(err, tavla.ErrSegmentNotFound) ||
		errors.Is(err, tavla.ErrUUIDNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
