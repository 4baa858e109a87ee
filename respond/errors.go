package respond

import "errors"

var (
	// ErrMessageStoreRequired is returned when a message store is not provided.
	ErrMessageStoreRequired = errors.New("message store required")

	// ErrUsageRepositoryRequired is returned when a usage repository is not provided.
	ErrUsageRepositoryRequired = errors.New("usage repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrNilDraft is returned when Finalize is called without a draft.
	ErrNilDraft = errors.New("draft is nil")

	// ErrMissingMessageId is returned when a draft has no message ID.
	// The message ID keys the exactly-once usage event.
	ErrMissingMessageId = errors.New("draft message id required")
)
