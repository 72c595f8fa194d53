// Package store implements the in-memory hierarchical session store.
package store

import "errors"

// Sentinel errors for the session store. Callers classify failures with
// errors.Is; wrapped messages carry the offending identifiers.
var (
	// ErrNotFound reports an unknown or cleared session or question.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState reports an operation forbidden by the session's
	// lifecycle state, such as recording into a completed session.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidInput reports a malformed label, missing identifier or
	// out-of-range confidence.
	ErrInvalidInput = errors.New("invalid input")
)
