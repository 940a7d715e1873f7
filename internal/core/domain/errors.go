package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyDocument indicates nothing was left to ingest after normalization
	ErrEmptyDocument = errors.New("empty document")

	// ErrUnsupportedFormat indicates no extractor handles the file extension
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEmbeddingFailure indicates the embedding capability failed
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrStoreFailure indicates the knowledge store rejected an upsert or query
	ErrStoreFailure = errors.New("store failure")

	// ErrModelFailure indicates the language model call failed
	ErrModelFailure = errors.New("model failure")

	// ErrDimensionMismatch indicates vectors of different lengths met in one collection.
	// It is a configuration error and is never retried.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrServiceUnavailable indicates the chat engine is not initialized
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrUpstreamTimeout indicates an upstream call exceeded its deadline. Retryable.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrJobFinished indicates a job in a terminal state was asked to transition
	ErrJobFinished = errors.New("job already finished")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrLockNotHeld indicates a lock release or extend by a non-owner
	ErrLockNotHeld = errors.New("lock not held")
)
