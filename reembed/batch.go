package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/tessara/groundline/ai"
	"github.com/tessara/groundline/core"
	"github.com/tessara/groundline/storage"
)

// SourceProcessor re-embeds one source's chunks with the target model.
type SourceProcessor struct {
	chunks         storage.ChunkRepository
	embedder       ai.Embedder
	model          string
	batchSize      int
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewSourceProcessor creates a new source processor.
// batchSize: maximum number of chunk texts per embedding API call
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewSourceProcessor(chunks storage.ChunkRepository, embedder ai.Embedder, model string, batchSize, maxRetries int, retryBaseDelay time.Duration) *SourceProcessor {
	if batchSize <= 0 {
		batchSize = DefaultConfig().BatchSize
	}
	return &SourceProcessor{
		chunks:         chunks,
		embedder:       embedder,
		model:          model,
		batchSize:      batchSize,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process re-embeds the source's chunks and replaces them in storage.
// A source's chunks must all carry one embedding model, so the source
// is swapped wholesale: all vectors are generated first, the old
// chunks are deleted, and the rewritten chunks are upserted. The swap
// spans two transactions; a crash in between leaves the source without
// chunks, which a re-run repairs.
func (sp *SourceProcessor) Process(ctx context.Context, source *core.Source, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += sp.batchSize {
		end := min(start+sp.batchSize, len(texts))
		batch := texts[start:end]

		var embeddings [][]float32
		err := RetryWithBackoff(ctx, func() error {
			var err error
			embeddings, err = sp.embedder.EmbedTexts(ctx, batch)
			return err
		}, sp.maxRetries, sp.retryBaseDelay)
		if err != nil {
			return fmt.Errorf("failed to generate embeddings after %d attempts: %w", sp.maxRetries, err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(embeddings))
		}

		vectors = append(vectors, embeddings...)
	}

	rewritten := make([]*core.Chunk, len(chunks))
	for i, chunk := range chunks {
		updated := *chunk
		updated.Vector = ai.NormalizeVector(vectors[i])
		updated.EmbeddingModel = sp.model
		rewritten[i] = &updated
	}

	if err := sp.chunks.DeleteChunksBySource(ctx, source.TenantId, source.AgentId, source.Id); err != nil {
		return fmt.Errorf("failed to clear chunks for source %d: %w", source.Id, err)
	}
	if err := sp.chunks.UpsertChunks(ctx, rewritten...); err != nil {
		return fmt.Errorf("failed to store rewritten chunks for source %d: %w", source.Id, err)
	}

	return nil
}
