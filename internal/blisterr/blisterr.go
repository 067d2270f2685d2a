// Package blisterr centralizes blister's error taxonomy so every layer
// raises one of a closed set of sentinels instead of ad-hoc strings.
// Callers use errors.Is/errors.As against these values; wrapping with
// fmt.Errorf("...: %w", err) keeps that working through the stack.
package blisterr

import "errors"

var (
	// ErrJSONCodec means an event payload failed to encode or decode.
	ErrJSONCodec = errors.New("blister: event payload codec error")

	// ErrUnknownEventType means a discriminator string is not in the
	// closed set the domain event model understands.
	ErrUnknownEventType = errors.New("blister: unknown event type")

	// ErrAggregateParse means tryLoad received an empty or
	// wrong-typed event stream for the aggregate it was asked to
	// reconstruct.
	ErrAggregateParse = errors.New("blister: aggregate parse error")

	// ErrIO means disk or IPC I/O failed beneath the event store.
	ErrIO = errors.New("blister: I/O error")

	// ErrEventArchive means the underlying keyspace reported an error
	// unrelated to a specific I/O syscall (e.g. bbolt internal fault).
	ErrEventArchive = errors.New("blister: event archive error")

	// ErrNotFound means a lookup by id found no record.
	ErrNotFound = errors.New("blister: not found")

	// ErrSubscriberLagged means a broadcast subscriber fell further
	// behind than its channel bound and was torn down.
	ErrSubscriberLagged = errors.New("blister: subscriber lagged")

	// ErrInvalidKeyword means a keyword failed the [\p{L}_-]+ pattern.
	ErrInvalidKeyword = errors.New("blister: invalid keyword")

	// ErrCorrupt marks an unrecoverable storage-consistency fault: a
	// secondary index pointing at a missing primary record, or a text
	// index hit that does not resolve to a live entity. Callers should
	// treat this as fatal, not retryable.
	ErrCorrupt = errors.New("blister: corrupt index")
)
