package feed

import "errors"

var (
	// ErrSourceUnreachable reports that one tier of a camera's chain failed
	// and the controller moved on to the next one.
	ErrSourceUnreachable = errors.New("feed: source unreachable")
	// ErrAllTiersExhausted reports that a camera fell through to the
	// placeholder.
	ErrAllTiersExhausted = errors.New("feed: all tiers exhausted")
	// ErrFilterYieldsEmpty is returned when no camera matches the country
	// filter.
	ErrFilterYieldsEmpty = errors.New("feed: no cameras match filter")
	// ErrStaleAttempt is returned for callbacks whose tag no longer matches
	// an in-flight request. The callback had no effect.
	ErrStaleAttempt = errors.New("feed: stale attempt")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("feed: session closed")
)
