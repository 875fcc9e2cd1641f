package domain

import "errors"

var (
	// ErrInvalidRequest is returned when a request is rejected before any
	// network call is made (unknown provider, blank question, negative k).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoPairs is returned when a directory holds no source/target pairs.
	ErrNoPairs = errors.New("no source/target pairs discovered")

	// ErrNoMappings is returned when pairs were found but none of their
	// blocks could be mapped.
	ErrNoMappings = errors.New("no block mappings produced")

	// ErrMalformedSource is returned by extractors on unparseable input.
	ErrMalformedSource = errors.New("malformed source")

	// ErrJobActive is returned when a job for the same key is still running.
	ErrJobActive = errors.New("job already active")

	ErrNotFound = errors.New("not found")
)
