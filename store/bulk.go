package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ParsedSegment is one segment produced by a Transcript Loader, ready for
// insertion by the Bulk Writer.
type ParsedSegment struct {
	SegmentID  int
	Text       string
	CharOffset int
	StartTime  float64
	EndTime    float64
	AvgLogprob *float64
}

// ParsedDocument is the (doc_row, segment_rows, full_text) tuple spec.md
// §4.3 describes parser workers returning to the writer, plus the stable
// doc_id the Bulk Writer assigned before fan-out.
type ParsedDocument struct {
	DocID        int64
	Source       string
	Episode      string
	EpisodeDate  string
	EpisodeTitle string
	FullText     string
	Segments     []ParsedSegment
}

// ParseFunc parses one input file into a ParsedDocument using the caller's
// assigned doc_id. A non-nil error is a per-file InputError (spec.md §4.1):
// it is logged and the file is skipped; the build continues.
type ParseFunc func(ctx context.Context, path string, docID int64) (ParsedDocument, error)

// BulkWriterConfig tunes the pipeline (spec.md §4.3, §5).
type BulkWriterConfig struct {
	Parallelism  int // parser pool size, min(16, cpu) by convention
	QueueSize    int // bounded channel between parsers and the writer
	DocBatch     int // document rows accumulated before a flush
	SegmentBatch int // segment rows accumulated before a flush
	DocsPerTx    int // documents committed per transaction
}

// Build runs the full bulk-load pipeline: a parser worker pool (parallelism
// = min(16, cpu)) feeds a bounded queue; a single writer goroutine owns the
// database connection and drains it. Secondary indexes are dropped before
// load and recreated after a successful drain, followed by an FTS5
// "optimize" pass (spec.md §4.3).
//
// files is assumed already in the deterministic order the caller wants
// doc_id assigned in (spec.md §9: "doc_id source of truth ... the
// lexicographically sorted file list index" — sorting is the caller's
// responsibility so this function stays order-agnostic).
func (s *Store) Build(ctx context.Context, files []string, parse ParseFunc, cfg BulkWriterConfig) error {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = runtime.NumCPU()
		if cfg.Parallelism > 16 {
			cfg.Parallelism = 16
		}
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 2000
	}
	if cfg.DocBatch <= 0 {
		cfg.DocBatch = 1000
	}
	if cfg.SegmentBatch <= 0 {
		cfg.SegmentBatch = 30000
	}
	if cfg.DocsPerTx <= 0 {
		cfg.DocsPerTx = 1000
	}

	if err := s.prepareForLoad(ctx); err != nil {
		return err
	}

	queue := make(chan ParsedDocument, cfg.QueueSize)

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(cfg.Parallelism))

	g.Go(func() error {
		defer close(queue)
		var fileGroup errgroup.Group
		for i, path := range files {
			docID := int64(i)
			path := path
			if err := sem.Acquire(gctx, 1); err != nil {
				return fileGroup.Wait()
			}
			fileGroup.Go(func() error {
				defer sem.Release(1)
				doc, err := parse(gctx, path, docID)
				if err != nil {
					slog.Warn("skipping unparsable transcript", "path", path, "error", err)
					return nil
				}
				select {
				case queue <- doc:
				case <-gctx.Done():
					return gctx.Err()
				}
				return nil
			})
		}
		return fileGroup.Wait()
	})

	var writeErr error
	g.Go(func() error {
		writeErr = s.drainQueue(gctx, queue, cfg)
		return writeErr
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("store: bulk build aborted: %w", err)
	}

	if err := s.finishLoad(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Store) prepareForLoad(ctx context.Context) error {
	for _, stmt := range dropIndexStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: drop index before load: %w", err)
		}
	}
	return nil
}

func (s *Store) finishLoad(ctx context.Context) error {
	for _, stmt := range indexStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: recreate index after load: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO documents_fts(documents_fts) VALUES('optimize')`); err != nil {
		return fmt.Errorf("store: fts optimize: %w", err)
	}
	return nil
}

// drainQueue is the single writer: it owns the transaction lifecycle. Two
// independent thresholds govern it (spec.md §4.3): a load batch accumulates
// document rows and segment rows in memory and flushes each to the open
// transaction once its own threshold (DocBatch / SegmentBatch) is reached,
// while the transaction itself is committed and reopened every DocsPerTx
// documents drained from the queue (the chunked-transaction rule — spec.md
// §5: "one giant transaction causes WAL growth, I/O stalls, and
// order-of-magnitude slowdowns"). A batch almost always flushes well inside
// a single transaction; flushing and committing are deliberately decoupled
// so the two thresholds can be tuned independently.
func (s *Store) drainQueue(ctx context.Context, queue <-chan ParsedDocument, cfg BulkWriterConfig) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin bulk transaction: %w", err)
	}

	batch := newLoadBatch(cfg.DocBatch, cfg.SegmentBatch)
	docsSinceCommit := 0
	totalDocs := 0
	start := time.Now()

	commit := func() error {
		if err := batch.flush(ctx, tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: commit bulk transaction: %w", err)
		}
		tx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("store: reopen bulk transaction: %w", err)
		}
		docsSinceCommit = 0
		return nil
	}

	for doc := range queue {
		batch.addDocument(doc)

		if batch.documentsFull() {
			if err := batch.flushDocuments(ctx, tx); err != nil {
				tx.Rollback()
				return err
			}
		}
		if batch.segmentsFull() {
			if err := batch.flushSegments(ctx, tx); err != nil {
				tx.Rollback()
				return err
			}
		}

		docsSinceCommit++
		totalDocs++
		if docsSinceCommit >= cfg.DocsPerTx {
			if err := commit(); err != nil {
				return err
			}
		}
	}

	if err := batch.flush(ctx, tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("store: flushing residual batch: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: final commit: %w", err)
	}

	slog.Info("bulk load complete", "documents", totalDocs, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// docRow is one pending document insert: its metadata plus the UUID minted
// for it when it entered the batch (spec.md §4.3: "a fresh UUID is minted
// per document").
type docRow struct {
	docID        int64
	uuid         string
	source       string
	episode      string
	episodeDate  string
	episodeTitle string
	fullText     string
}

// segRow is one pending segment insert, carrying its owning doc_id since
// segments accumulate across document boundaries.
type segRow struct {
	docID int64
	seg   ParsedSegment
}

// loadBatch is the Bulk Writer's accumulate-then-flush buffer (spec.md
// §4.3): document rows and segment rows build up independently and each
// flushes to the open transaction once its own threshold is reached,
// decoupled from the DocsPerTx commit cadence.
type loadBatch struct {
	docCap int
	segCap int
	docs   []docRow
	segs   []segRow
}

func newLoadBatch(docCap, segCap int) *loadBatch {
	return &loadBatch{docCap: docCap, segCap: segCap}
}

// addDocument stages a document's row and all of its segment rows.
func (b *loadBatch) addDocument(doc ParsedDocument) {
	b.docs = append(b.docs, docRow{
		docID:        doc.DocID,
		uuid:         uuid.NewString(),
		source:       doc.Source,
		episode:      doc.Episode,
		episodeDate:  doc.EpisodeDate,
		episodeTitle: doc.EpisodeTitle,
		fullText:     doc.FullText,
	})
	for _, seg := range doc.Segments {
		b.segs = append(b.segs, segRow{docID: doc.DocID, seg: seg})
	}
}

func (b *loadBatch) documentsFull() bool { return len(b.docs) >= b.docCap }
func (b *loadBatch) segmentsFull() bool  { return len(b.segs) >= b.segCap }

// flush drains both pending batches, regardless of whether either has
// reached its threshold — used before a transaction commits so nothing
// staged in memory is lost to the next transaction.
func (b *loadBatch) flush(ctx context.Context, tx *sql.Tx) error {
	if err := b.flushDocuments(ctx, tx); err != nil {
		return err
	}
	return b.flushSegments(ctx, tx)
}

// sqliteMaxParams is SQLite's default bound-parameter ceiling per statement
// (SQLITE_MAX_VARIABLE_NUMBER's pre-3.32 default); batches are chunked to
// this regardless of DocBatch/SegmentBatch, since those tune when a flush
// happens, not how many rows one INSERT statement can safely carry.
const sqliteMaxParams = 999

// flushDocuments inserts every pending document row, its FTS row, and its
// fts_doc_mapping entry, then clears the pending document batch. Document
// rows are batched into multi-row INSERT statements chunked to
// sqliteMaxParams; the FTS rowids for a chunk are recovered from
// last_insert_rowid() by counting backward, which is safe because this
// store has exactly one writer connection and FTS5 assigns rowids
// contiguously for a single multi-row insert with no explicit rowid column.
func (b *loadBatch) flushDocuments(ctx context.Context, tx *sql.Tx) error {
	if len(b.docs) == 0 {
		return nil
	}
	const docCols = 7
	chunkSize := sqliteMaxParams / docCols

	for start := 0; start < len(b.docs); start += chunkSize {
		end := start + chunkSize
		if end > len(b.docs) {
			end = len(b.docs)
		}
		if err := insertDocumentChunk(ctx, tx, b.docs[start:end]); err != nil {
			return err
		}
	}
	b.docs = b.docs[:0]
	return nil
}

func insertDocumentChunk(ctx context.Context, tx *sql.Tx, chunk []docRow) error {
	var docSB strings.Builder
	docSB.WriteString(`INSERT INTO documents (doc_id, uuid, source, episode, episode_date, episode_title, total_chars) VALUES `)
	docArgs := make([]interface{}, 0, len(chunk)*7)
	for i, d := range chunk {
		if i > 0 {
			docSB.WriteString(", ")
		}
		docSB.WriteString("(?, ?, ?, ?, ?, ?, ?)")
		docArgs = append(docArgs, d.docID, d.uuid, d.source, d.episode, nullableDate(d.episodeDate), d.episodeTitle, len(d.fullText))
	}
	if _, err := tx.ExecContext(ctx, docSB.String(), docArgs...); err != nil {
		return fmt.Errorf("insert document batch: %w", err)
	}

	var ftsSB strings.Builder
	ftsSB.WriteString(`INSERT INTO documents_fts (full_text) VALUES `)
	ftsArgs := make([]interface{}, 0, len(chunk))
	for i, d := range chunk {
		if i > 0 {
			ftsSB.WriteString(", ")
		}
		ftsSB.WriteString("(?)")
		ftsArgs = append(ftsArgs, d.fullText)
	}
	res, err := tx.ExecContext(ctx, ftsSB.String(), ftsArgs...)
	if err != nil {
		return fmt.Errorf("insert fts batch: %w", err)
	}
	lastRowID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("fts batch rowid: %w", err)
	}
	firstRowID := lastRowID - int64(len(chunk)) + 1

	var mapSB strings.Builder
	mapSB.WriteString(`INSERT INTO fts_doc_mapping (fts_rowid, doc_id) VALUES `)
	mapArgs := make([]interface{}, 0, len(chunk)*2)
	for i, d := range chunk {
		if i > 0 {
			mapSB.WriteString(", ")
		}
		mapSB.WriteString("(?, ?)")
		mapArgs = append(mapArgs, firstRowID+int64(i), d.docID)
	}
	if _, err := tx.ExecContext(ctx, mapSB.String(), mapArgs...); err != nil {
		return fmt.Errorf("insert fts mapping batch: %w", err)
	}
	return nil
}

// flushSegments inserts every pending segment row, possibly spanning
// several documents, then clears the pending segment batch. Rows are
// batched into multi-row INSERT statements chunked to sqliteMaxParams.
func (b *loadBatch) flushSegments(ctx context.Context, tx *sql.Tx) error {
	if len(b.segs) == 0 {
		return nil
	}
	const segCols = 7
	chunkSize := sqliteMaxParams / segCols

	for start := 0; start < len(b.segs); start += chunkSize {
		end := start + chunkSize
		if end > len(b.segs) {
			end = len(b.segs)
		}
		if err := insertSegmentChunk(ctx, tx, b.segs[start:end]); err != nil {
			return err
		}
	}
	b.segs = b.segs[:0]
	return nil
}

func insertSegmentChunk(ctx context.Context, tx *sql.Tx, chunk []segRow) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO segments (doc_id, segment_id, segment_text, avg_logprob, char_offset, start_time, end_time) VALUES `)
	args := make([]interface{}, 0, len(chunk)*7)
	for i, r := range chunk {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?)")
		var logprob interface{}
		if r.seg.AvgLogprob != nil {
			logprob = *r.seg.AvgLogprob
		}
		args = append(args, r.docID, r.seg.SegmentID, r.seg.Text, logprob, r.seg.CharOffset, r.seg.StartTime, r.seg.EndTime)
	}
	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert segment batch: %w", err)
	}
	return nil
}

func nullableDate(date string) interface{} {
	if date == "" {
		return nil
	}
	return date
}
