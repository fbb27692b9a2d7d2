package corpus

import "errors"

var (
	// ErrNoInputs is returned by Open when both the seed directory and the
	// on-disk queue are empty.
	ErrNoInputs = errors.New("corpus: no inputs found")
	// ErrIngestRead is returned by Ingest when the inbound input's bytes
	// could not be read from its path. Per SPEC_FULL.md §7, callers should
	// log and skip rather than treat this as fatal.
	ErrIngestRead = errors.New("corpus: failed to read new input")
)
