package tavla

import "errors"

var (
	// ErrDocumentNotFound is returned when a doc_id does not exist in the store.
	ErrDocumentNotFound = errors.New("tavla: document not found")

	// ErrSegmentNotFound is returned when no segment contains the requested offset.
	ErrSegmentNotFound = errors.New("tavla: segment not found")

	// ErrUUIDNotFound is returned when a document UUID is not present in the store.
	ErrUUIDNotFound = errors.New("tavla: uuid not found")

	// ErrStoreExists names the refused-rebuild condition (the target store
	// file already exists). No function in this module returns it: store.Open
	// reports that condition as store.ErrStoreExists.
	ErrStoreExists = errors.New("tavla: store already exists")

	// ErrStoreClosed names operating on a closed store. No function in this
	// module returns it.
	ErrStoreClosed = errors.New("tavla: store is closed")

	// ErrSchemaMigration names a schema creation or migration failure. No
	// function in this module returns it: package store wraps such failures
	// in store.ErrSchemaMigration.
	ErrSchemaMigration = errors.New("tavla: schema migration failed")

	// ErrInvalidTranscript names a transcript file with an unrecognized root
	// shape or missing required segment fields. No function in this module
	// returns it: package loader reports those cases with plain errors.
	ErrInvalidTranscript = errors.New("tavla: invalid transcript")

	// ErrUnknownFormat names a transcript file extension with no registered
	// loader. No function in this module returns it: loader.Registry reports
	// that case with a plain error.
	ErrUnknownFormat = errors.New("tavla: unknown transcript format")

	// ErrNoTokens names a query with no extractable word tokens and no usable
	// candidate filter. Search does not return it: such a query yields an
	// empty result set and a nil error.
	ErrNoTokens = errors.New("tavla: query has no extractable tokens")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("tavla: invalid configuration")
)
