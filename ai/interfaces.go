package ai

import (
	"context"

	"github.com/tessara/groundline/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings.
	// The returned slice contains embeddings in the same order as the
	// input texts, regardless of the order the provider answered in.
	// An empty input returns an empty result without calling the provider.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// JudgeRequest carries everything the judge needs to score a drafted answer.
type JudgeRequest struct {
	// Draft is the generated answer under evaluation.
	Draft string

	// SystemPrompt is the agent's persona and instructions.
	SystemPrompt string

	// Context is the retrieved knowledge the draft was grounded on.
	Context string

	// UserMessage is the end user's question.
	UserMessage string
}

// Judge scores a drafted answer before it is released to the end user.
// Implementations must be thread-safe for concurrent use.
//
// A malformed or inscrutable verdict from the underlying model is NOT an
// error: implementations return a failed evaluation with Malformed set, so
// that callers fail closed. An error return means the judge could not be
// consulted at all (transport failure, timeout).
type Judge interface {
	Evaluate(ctx context.Context, req *JudgeRequest) (*core.JudgeEvaluation, error)
}

// AIProvider aggregates AI services for convenient initialization and
// lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Judge returns the response judging service.
	Judge() Judge

	// Close releases resources held by the provider and its services.
	Close() error
}
