// Package store implements the Index Store: the persistent, key-addressed
// backing for the transcript corpus (spec.md §4.2). It owns the single
// SQLite connection used for writes and exposes a read-only connection mode
// for concurrent query-phase readers (spec.md §5).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Document is one transcript, reconstructed into a single joined string.
type Document struct {
	DocID        int64
	UUID         string
	Source       string
	Episode      string
	EpisodeDate  string // ISO YYYY-MM-DD, empty if absent
	EpisodeTitle string
	TotalChars   int
}

// Segment is one timestamped sub-unit of a document.
type Segment struct {
	DocID      int64
	SegmentID  int
	Text       string
	AvgLogprob sql.NullFloat64
	CharOffset int
	StartTime  float64
	EndTime    float64
}

// DocumentStats summarizes the whole corpus.
type DocumentStats struct {
	DocCount   int64
	TotalChars int64
}

// SegmentIDPair identifies a segment by (doc_id, segment_id) for batch lookup.
type SegmentIDPair struct {
	DocID     int64
	SegmentID int
}

// CandidateDoc is one document returned by the FTS or full-scan candidate
// query, carrying enough text for the Query Planner to run its verification
// regex.
type CandidateDoc struct {
	DocID    int64
	FullText string
}

// Store wraps the SQLite connection and exposes the Index Store operations
// from spec.md §4.2. A Store opened writable is used only by the Bulk
// Writer; query-phase callers should open with OpenReadOnly.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// Open creates (if necessary) and opens a writable store at path. If
// refuseExisting is true and the file already exists, ErrStoreExists is
// returned without touching the file (spec.md §6: a rebuild must refuse to
// proceed against an existing store).
func Open(path string, refuseExisting bool) (*Store, error) {
	if refuseExisting {
		if _, err := os.Stat(path); err == nil {
			return nil, ErrStoreExists
		}
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: creating parent dir: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=30000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	// Single writer: the Bulk Writer serializes all writes through one
	// connection, so one pooled conn is enough and avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, path: path}
	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrSchemaMigration, err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenReadOnly opens an existing store for concurrent query-phase reads
// (spec.md §5: "the store is read-only and may be opened by multiple
// reader threads concurrently").
func OpenReadOnly(path string) (*Store, error) {
	dsn := path + "?mode=ro&_busy_timeout=30000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening database read-only: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db, path: path, readOnly: true}, nil
}

// DB exposes the underlying connection for callers that need raw access
// (tests, diagnostics).
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// GetDocumentStats returns the corpus-wide document count and character total.
func (s *Store) GetDocumentStats(ctx context.Context) (DocumentStats, error) {
	var stats DocumentStats
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(total_chars), 0) FROM documents")
	if err := row.Scan(&stats.DocCount, &stats.TotalChars); err != nil {
		return DocumentStats{}, fmt.Errorf("store: document stats: %w", err)
	}
	return stats, nil
}

// GetDocumentText returns a document's reconstructed full text.
func (s *Store) GetDocumentText(ctx context.Context, docID int64) (string, error) {
	var rowid int64
	row := s.db.QueryRowContext(ctx, "SELECT fts_rowid FROM fts_doc_mapping WHERE doc_id = ?", docID)
	if err := row.Scan(&rowid); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("store: document text lookup: %w", err)
	}
	var text string
	row = s.db.QueryRowContext(ctx, "SELECT full_text FROM documents_fts WHERE rowid = ?", rowid)
	if err := row.Scan(&text); err != nil {
		return "", fmt.Errorf("store: document text: %w", err)
	}
	return text, nil
}

// GetDocumentInfo returns a document's metadata record.
func (s *Store) GetDocumentInfo(ctx context.Context, docID int64) (Document, error) {
	var d Document
	var date sql.NullString
	row := s.db.QueryRowContext(ctx,
		`SELECT doc_id, uuid, source, episode, episode_date, episode_title, total_chars
		 FROM documents WHERE doc_id = ?`, docID)
	if err := row.Scan(&d.DocID, &d.UUID, &d.Source, &d.Episode, &date, &d.EpisodeTitle, &d.TotalChars); err != nil {
		if err == sql.ErrNoRows {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("store: document info: %w", err)
	}
	d.EpisodeDate = date.String
	return d, nil
}

// GetEpisodeByUUID resolves a document's episode path from its externally
// visible UUID, for the audio-serving collaborator (spec.md §6).
func (s *Store) GetEpisodeByUUID(ctx context.Context, uuid string) (string, error) {
	var episode string
	row := s.db.QueryRowContext(ctx, "SELECT episode FROM documents WHERE uuid = ?", uuid)
	if err := row.Scan(&episode); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("store: episode by uuid: %w", err)
	}
	return episode, nil
}

// GetSegmentAtOffset returns the segment with the largest char_offset <= offset.
func (s *Store) GetSegmentAtOffset(ctx context.Context, docID int64, offset int) (Segment, error) {
	var seg Segment
	row := s.db.QueryRowContext(ctx,
		`SELECT doc_id, segment_id, segment_text, avg_logprob, char_offset, start_time, end_time
		 FROM segments
		 WHERE doc_id = ? AND char_offset <= ?
		 ORDER BY char_offset DESC LIMIT 1`, docID, offset)
	if err := row.Scan(&seg.DocID, &seg.SegmentID, &seg.Text, &seg.AvgLogprob, &seg.CharOffset, &seg.StartTime, &seg.EndTime); err != nil {
		if err == sql.ErrNoRows {
			return Segment{}, ErrNotFound
		}
		return Segment{}, fmt.Errorf("store: segment at offset: %w", err)
	}
	return seg, nil
}

// GetSegmentsByIDs is the batch (doc_id, segment_id) lookup from spec.md
// §4.2: keys are staged into a temp table, joined against segments, and
// returned ordered by (doc_id, segment_id). Duplicate keys collapse to one
// row (SELECT DISTINCT); callers needing 1:1 alignment reconstruct it themselves.
func (s *Store) GetSegmentsByIDs(ctx context.Context, pairs []SegmentIDPair) ([]Segment, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin batch lookup: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`CREATE TEMP TABLE IF NOT EXISTS _lookup_keys (doc_id INTEGER, segment_id INTEGER)`); err != nil {
		return nil, fmt.Errorf("store: create temp lookup table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM _lookup_keys`); err != nil {
		return nil, fmt.Errorf("store: clear temp lookup table: %w", err)
	}

	const maxParams = 999
	const colsPerRow = 2
	batchSize := maxParams / colsPerRow

	for start := 0; start < len(pairs); start += batchSize {
		end := start + batchSize
		if end > len(pairs) {
			end = len(pairs)
		}
		chunk := pairs[start:end]

		var sb strings.Builder
		sb.WriteString("INSERT INTO _lookup_keys (doc_id, segment_id) VALUES ")
		args := make([]interface{}, 0, len(chunk)*colsPerRow)
		for i, p := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?)")
			args = append(args, p.DocID, p.SegmentID)
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return nil, fmt.Errorf("store: stage lookup keys: %w", err)
		}
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT DISTINCT s.doc_id, s.segment_id, s.segment_text, s.avg_logprob, s.char_offset, s.start_time, s.end_time
		FROM segments s
		INNER JOIN _lookup_keys k ON k.doc_id = s.doc_id AND k.segment_id = s.segment_id
		ORDER BY s.doc_id, s.segment_id`)
	if err != nil {
		return nil, fmt.Errorf("store: batch segment query: %w", err)
	}
	defer rows.Close()

	var out []Segment
	for rows.Next() {
		var seg Segment
		if err := rows.Scan(&seg.DocID, &seg.SegmentID, &seg.Text, &seg.AvgLogprob, &seg.CharOffset, &seg.StartTime, &seg.EndTime); err != nil {
			return nil, fmt.Errorf("store: scan batch segment: %w", err)
		}
		out = append(out, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM _lookup_keys`); err != nil {
		return nil, fmt.Errorf("store: clear temp lookup table after read: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit batch lookup: %w", err)
	}
	return out, nil
}

// GetSegmentsForDocument returns every segment of a document, ordered by
// segment_id. This backs the in-memory Segment Resolver / Position
// Classifier fast path (spec.md §4.5), which needs the full
// seg_boundaries list for one document rather than a single offset or
// segment_id lookup.
func (s *Store) GetSegmentsForDocument(ctx context.Context, docID int64) ([]Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, segment_id, segment_text, avg_logprob, char_offset, start_time, end_time
		 FROM segments WHERE doc_id = ? ORDER BY segment_id`, docID)
	if err != nil {
		return nil, fmt.Errorf("store: segments for document: %w", err)
	}
	defer rows.Close()

	var out []Segment
	for rows.Next() {
		var seg Segment
		if err := rows.Scan(&seg.DocID, &seg.SegmentID, &seg.Text, &seg.AvgLogprob, &seg.CharOffset, &seg.StartTime, &seg.EndTime); err != nil {
			return nil, fmt.Errorf("store: scan segment: %w", err)
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}

// FilterSet layers the optional candidate-set filters from spec.md §4.4.
type FilterSet struct {
	DateFrom string // inclusive, ISO YYYY-MM-DD, compared lexicographically
	DateTo   string // inclusive
	Sources  []string
}

func (f FilterSet) whereClause() (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if f.DateFrom != "" {
		clauses = append(clauses, "d.episode_date >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		clauses = append(clauses, "d.episode_date <= ?")
		args = append(args, f.DateTo)
	}
	if len(f.Sources) > 0 {
		placeholders := make([]string, len(f.Sources))
		for i, src := range f.Sources {
			placeholders[i] = "?"
			args = append(args, src)
		}
		clauses = append(clauses, "d.source IN ("+strings.Join(placeholders, ", ")+")")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

// FTSCandidates runs an FTS5 MATCH query (phrase, prefix-OR, or single
// prefix-token) and returns matching documents' full text, with the
// filters from spec.md §4.4 layered into the SELECT as bound parameters.
func (s *Store) FTSCandidates(ctx context.Context, ftsQuery string, filters FilterSet) ([]CandidateDoc, error) {
	where, filterArgs := filters.whereClause()
	q := `
		SELECT d.doc_id, f.full_text
		FROM documents_fts f
		INNER JOIN fts_doc_mapping m ON m.fts_rowid = f.rowid
		INNER JOIN documents d ON d.doc_id = m.doc_id
		WHERE documents_fts MATCH ?` + where + `
		ORDER BY d.doc_id`

	args := append([]interface{}{ftsQuery}, filterArgs...)
	return s.runCandidateQuery(ctx, q, args)
}

// AllCandidates returns every document's full text, for the slow-path scan
// used when no token-based FTS prefix filter can be built (spec.md §4.4,
// regex mode with no usable prefix; partial mode with no tokens).
func (s *Store) AllCandidates(ctx context.Context, filters FilterSet) ([]CandidateDoc, error) {
	where, filterArgs := filters.whereClause()
	q := `
		SELECT d.doc_id, f.full_text
		FROM documents d
		INNER JOIN fts_doc_mapping m ON m.doc_id = d.doc_id
		INNER JOIN documents_fts f ON f.rowid = m.fts_rowid
		WHERE 1=1` + where + `
		ORDER BY d.doc_id`
	return s.runCandidateQuery(ctx, q, filterArgs)
}

func (s *Store) runCandidateQuery(ctx context.Context, q string, args []interface{}) ([]CandidateDoc, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: candidate query: %w", err)
	}
	defer rows.Close()

	var out []CandidateDoc
	for rows.Next() {
		var c CandidateDoc
		if err := rows.Scan(&c.DocID, &c.FullText); err != nil {
			return nil, fmt.Errorf("store: scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
