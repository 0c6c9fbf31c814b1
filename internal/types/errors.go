package types

import "errors"

// Domain specific errors shared across the recommendation pipeline.
var (
	ErrNotFound   = errors.New("requested item not found")
	ErrConflict   = errors.New("item already exists or conflict")
	ErrBadRequest = errors.New("bad request")

	// ErrZeroResults means the provider legitimately found nothing for the
	// given input. Callers map it to an empty-state response, never to a
	// server failure.
	ErrZeroResults = errors.New("no results found")

	// ErrNoAddress means the provider could not resolve an origin address
	// in a distance-matrix request.
	ErrNoAddress = errors.New("origin address could not be resolved")

	// ErrEmptyPoints is returned by midpoint calculations on empty input.
	ErrEmptyPoints = errors.New("no points provided")

	// ErrCacheOperation wraps any spatial cache backend failure so provider
	// specific errors never leak out of the cache layer.
	ErrCacheOperation = errors.New("spatial cache operation failed")

	// ErrProvider wraps any non-OK provider status that is not covered by a
	// more specific sentinel.
	ErrProvider = errors.New("map provider request failed")
)
