package ai

import (
	"errors"
	"fmt"
)

// ErrNoEmbeddingData indicates the provider returned an empty result set.
var ErrNoEmbeddingData = errors.New("no embedding data in response")

// ErrEmbeddingCountMismatch indicates the provider returned a different
// number of embeddings than texts were sent.
var ErrEmbeddingCountMismatch = errors.New("embedding count does not match input count")

// ProviderError describes a failed call to an AI service.
type ProviderError struct {
	// StatusCode is the HTTP status, 0 for network-level failures.
	StatusCode int
	Message    string
	Model      string
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("ai provider (%s): %s", e.Model, e.Message)
	}
	return fmt.Sprintf("ai provider (%s): status %d: %s", e.Model, e.StatusCode, e.Message)
}

// Retryable reports whether the failure is transient. Rate limiting,
// server errors, and network failures are retryable; other client
// errors are permanent.
func (e *ProviderError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	if e.StatusCode == 429 {
		return true
	}
	return e.StatusCode >= 500
}
