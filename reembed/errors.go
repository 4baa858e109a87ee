package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrSourceRepositoryRequired is returned when no source repository is provided.
	ErrSourceRepositoryRequired = errors.New("source repository is required")

	// ErrChunkRepositoryRequired is returned when no chunk repository is provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository is required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrModelRequired is returned when no target embedding model is named.
	ErrModelRequired = errors.New("target embedding model is required")
)
