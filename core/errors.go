package core

import "errors"

// Sentinel errors. Callers classify with errors.Is.
var (
	// ErrUnsupportedFormat indicates no parser is registered for an extension.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrIO indicates a file is missing or unreadable.
	ErrIO = errors.New("io error")

	// ErrFormat indicates a file exists but cannot be decoded as its claimed type.
	ErrFormat = errors.New("format error")

	// ErrInvalidConfig indicates bad input detected before any directory mutation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownStage indicates a pipeline step name outside the known set.
	ErrUnknownStage = errors.New("unknown pipeline stage")

	// ErrEmbedderUnavailable indicates the embedding service cannot be reached at all.
	// It aborts the embed stage rather than failing a single batch.
	ErrEmbedderUnavailable = errors.New("embedding service unavailable")
)
