package store

import "errors"

var (
	// ErrNotFound is returned when a doc_id, uuid, or segment-at-offset
	// lookup matches nothing. Distinct from StoreError: recoverable by callers.
	ErrNotFound = errors.New("store: not found")

	// ErrSchemaMigration wraps any failure during schema creation or migration.
	ErrSchemaMigration = errors.New("store: schema migration failed")

	// ErrStoreExists is returned by Open when refuseExisting is set and the
	// database file already exists (spec.md §6: builds are non-idempotent).
	ErrStoreExists = errors.New("store: database file already exists")
)
