package retrieval

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tessara/groundline/ai"
	"github.com/tessara/groundline/core"
	"github.com/tessara/groundline/storage"
)

// Retriever answers queries with ranked, citation-ready chunks scoped
// to one tenant and agent.
type Retriever struct {
	chunks   storage.ChunkRepository
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(
	chunks storage.ChunkRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Retriever, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	r := &Retriever{
		chunks:   chunks,
		embedder: provider.Embedder(),
		logger:   slog.Default().With("component", "retrieval"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Retrieve returns up to k chunks relevant to the query, ranked by
// similarity. k is clamped to the repository's search bounds.
func (r *Retriever) Retrieve(ctx context.Context, tenantID, agentID core.ID, query string, k int) ([]*core.RetrievedChunk, error) {
	return r.RetrieveWithMonitor(ctx, tenantID, agentID, query, k, nil)
}

// RetrieveWithMonitor returns up to k chunks relevant to the query with
// monitoring. The monitor receives callbacks at each retrieval stage.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, tenantID, agentID core.ID, query string, k int, monitor RetrievalMonitor) ([]*core.RetrievedChunk, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	monitor.Start(query)
	k = storage.ClampK(k)

	embedding, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}
	// Stored chunk vectors are unit length; normalizing the query makes
	// the dot-product scores cosine similarities.
	embedding = ai.NormalizeVector(embedding)
	monitor.AfterQueryEmbedding(embedding)

	matches, err := r.chunks.FindSimilar(ctx, tenantID, agentID, embedding, k)
	if err != nil {
		r.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	monitor.AfterSimilaritySearch(matches)

	if len(matches) == 0 {
		return []*core.RetrievedChunk{}, nil
	}

	ids := make([]core.ID, len(matches))
	for i, match := range matches {
		ids[i] = match.ChunkId
	}

	chunks, err := r.chunks.GetChunks(ctx, ids...)
	if err != nil {
		r.logger.Error("error hydrating chunks", "chunkCount", len(ids), "err", err)
		return nil, err
	}
	monitor.AfterChunkHydration(chunks)

	byID := make(map[core.ID]*core.Chunk, len(chunks))
	for _, chunk := range chunks {
		byID[chunk.Id] = chunk
	}

	// Ranking order comes from the similarity search; hydration must not
	// reorder it.
	results := make([]*core.RetrievedChunk, 0, len(matches))
	for _, match := range matches {
		chunk, ok := byID[match.ChunkId]
		if !ok {
			r.logger.Warn("matched chunk missing during hydration", "chunk", match.ChunkId)
			continue
		}
		results = append(results, &core.RetrievedChunk{
			ChunkId:    chunk.Id,
			Score:      match.Score,
			Content:    chunk.Content,
			SourceId:   chunk.SourceId,
			SourceKind: chunk.SourceKind,
			SourceName: chunk.SourceName,
			PageNumber: chunk.PageNumber,
			URL:        chunk.URL,
			Ordinal:    chunk.Ordinal,
		})
	}

	monitor.Finish(results)
	r.logger.Debug("retrieval finished", "tenant", tenantID, "agent", agentID, "hits", len(results))
	return results, nil
}
