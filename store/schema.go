package store

// schemaSQL is the DDL for the documents/segments/FTS tables. It omits
// all secondary indexes (see indexStatements) so the Bulk Writer can create
// the base tables, load data, then build indexes afterward.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
    doc_id INTEGER PRIMARY KEY,
    uuid TEXT NOT NULL UNIQUE,
    source TEXT NOT NULL,
    episode TEXT NOT NULL,
    episode_date TEXT,
    episode_title TEXT NOT NULL,
    total_chars INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS segments (
    doc_id INTEGER NOT NULL REFERENCES documents(doc_id) ON DELETE CASCADE,
    segment_id INTEGER NOT NULL,
    segment_text TEXT NOT NULL,
    avg_logprob REAL,
    char_offset INTEGER NOT NULL,
    start_time REAL NOT NULL,
    end_time REAL NOT NULL,
    PRIMARY KEY (doc_id, segment_id)
);

-- Standalone FTS5 table (no external content table): it stores its own copy
-- of full_text, which lives only here, and GetDocumentText reads it back.
-- Rows are addressed by fts_rowid and mapped back to doc_id via
-- fts_doc_mapping. This mirrors
-- the Python original's decoupled FTS table rather than a content-table
-- synced-by-trigger design, since documents are never updated after commit
-- (spec.md §3: "No entity is mutated after commit").
CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
    full_text,
    tokenize='unicode61 remove_diacritics 0'
);

CREATE TABLE IF NOT EXISTS fts_doc_mapping (
    fts_rowid INTEGER PRIMARY KEY,
    doc_id INTEGER NOT NULL REFERENCES documents(doc_id) ON DELETE CASCADE
);
`

// indexStatements returns the secondary indexes required for query
// performance (spec.md §4.2). The Bulk Writer drops these before a load and
// recreates them afterward.
func indexStatements() []string {
	return []string{
		"CREATE INDEX IF NOT EXISTS idx_segments_doc ON segments(doc_id)",
		"CREATE INDEX IF NOT EXISTS idx_segments_doc_segid ON segments(doc_id, segment_id)",
		"CREATE INDEX IF NOT EXISTS idx_segments_char_offset ON segments(doc_id, char_offset)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_uuid ON documents(uuid)",
		"CREATE INDEX IF NOT EXISTS idx_documents_episode_date ON documents(episode_date)",
		"CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source)",
		"CREATE INDEX IF NOT EXISTS idx_mapping_doc ON fts_doc_mapping(doc_id)",
	}
}

func dropIndexStatements() []string {
	return []string{
		"DROP INDEX IF EXISTS idx_segments_doc",
		"DROP INDEX IF EXISTS idx_segments_doc_segid",
		"DROP INDEX IF EXISTS idx_segments_char_offset",
		"DROP INDEX IF EXISTS idx_documents_uuid",
		"DROP INDEX IF EXISTS idx_documents_episode_date",
		"DROP INDEX IF EXISTS idx_documents_source",
		"DROP INDEX IF EXISTS idx_mapping_doc",
	}
}
