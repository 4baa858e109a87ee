package ingestion

import "errors"

var (
	// ErrJobRepositoryRequired is returned when a job repository is not provided.
	ErrJobRepositoryRequired = errors.New("job repository required")

	// ErrSourceRepositoryRequired is returned when a source repository is not provided.
	ErrSourceRepositoryRequired = errors.New("source repository required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrFetcherRegistryRequired is returned when a fetcher registry is not provided.
	ErrFetcherRegistryRequired = errors.New("fetcher registry required")

	// ErrControllerRequired is returned when a job controller is not provided.
	ErrControllerRequired = errors.New("job controller required")

	// ErrPipelineRequired is returned when an ingestion pipeline is not provided.
	ErrPipelineRequired = errors.New("ingestion pipeline required")

	// ErrSchedulerClosed is returned when enqueueing on a released scheduler.
	ErrSchedulerClosed = errors.New("scheduler released")

	// ErrJobTerminal is returned when mutating a job that has already
	// reached a terminal status. Terminal jobs are read-only.
	ErrJobTerminal = errors.New("job is terminal")

	// ErrUnknownSourceKind is returned when no fetcher is registered
	// for a source's kind.
	ErrUnknownSourceKind = errors.New("no fetcher for source kind")

	// ErrSpecMismatch is returned when a source's spec does not match
	// its declared kind.
	ErrSpecMismatch = errors.New("source spec does not match kind")

	// ErrEmptyContent is returned when fetching a source yields no text.
	ErrEmptyContent = errors.New("source produced no content")

	// ErrNoChunks is returned when chunking a source yields zero chunks.
	ErrNoChunks = errors.New("source produced no chunks")

	// ErrSourceDeleted is returned when a job references a tombstoned source.
	ErrSourceDeleted = errors.New("source has been deleted")
)

// FatalError marks an ingestion failure as non-retryable. The pipeline
// surfaces it as a terminal error on the Source and aborts the job
// regardless of remaining attempt budget.
type FatalError struct {
	Err error
}

// Error returns the wrapped error's message.
func (e *FatalError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err as non-retryable. Returns nil for a nil err.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether any error in err's chain is a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
