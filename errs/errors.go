// Package errs defines the sentinel errors returned by the zisraw packages.
//
// Every error produced by the decoder wraps exactly one of the kind sentinels
// below, so callers classify failures with errors.Is regardless of how much
// context was added on the way up.
package errs

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	// ErrMalformedContainer reports a structural violation: unknown segment id,
	// inconsistent size fields or a truncated segment.
	ErrMalformedContainer = errors.New("malformed container")
	// ErrOutOfRange reports a view or copy that would read or write past a buffer.
	ErrOutOfRange = errors.New("out of range")
	// ErrUnsupportedPixelType reports a pixel type without a decoder.
	ErrUnsupportedPixelType = errors.New("unsupported pixel type")
	// ErrNotImplemented reports a recognized compression code that has no decoder.
	ErrNotImplemented = errors.New("not implemented")
	// ErrCanceled reports work abandoned because the decode context was canceled.
	ErrCanceled = errors.New("decode canceled")
)

// Structural errors.
var (
	ErrInvalidSegmentID      = fmt.Errorf("%w: invalid segment id", ErrMalformedContainer)
	ErrInvalidSegmentSize    = fmt.Errorf("%w: used size exceeds allocated size", ErrMalformedContainer)
	ErrTruncatedSegment      = fmt.Errorf("%w: truncated segment", ErrMalformedContainer)
	ErrUnexpectedSegment     = fmt.Errorf("%w: unexpected segment type", ErrMalformedContainer)
	ErrInvalidDirectoryEntry = fmt.Errorf("%w: invalid directory entry", ErrMalformedContainer)
	ErrDuplicateDimension    = fmt.Errorf("%w: duplicate dimension", ErrMalformedContainer)
	ErrNoDirectory           = fmt.Errorf("%w: container has no directory", ErrMalformedContainer)
)

// ErrMetadataParse reports a metadata segment that could not be parsed. It is a
// container violation, but callers never treat it as fatal for pixel decoding.
var ErrMetadataParse = fmt.Errorf("%w: metadata parse failed", ErrMalformedContainer)

// ErrDuplicatePlane reports a plane identifier produced twice in one result.
var ErrDuplicatePlane = errors.New("duplicate plane")

// PlaneError records the failure of a single plane. The other planes of the
// container are unaffected.
type PlaneError struct {
	Plane string
	Err   error
}

func (e *PlaneError) Error() string {
	return fmt.Sprintf("plane %q: %v", e.Plane, e.Err)
}

func (e *PlaneError) Unwrap() error {
	return e.Err
}

// OutOfRange builds an ErrOutOfRange error carrying the overrun amount.
func OutOfRange(what string, end, limit int64) error {
	return fmt.Errorf("%w: %s ends at %d, limit %d (overrun %d bytes)", ErrOutOfRange, what, end, limit, end-limit)
}
