package retrieval

import "github.com/tessara/groundline/core"

// RetrievalMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps during a query.
type RetrievalMonitor interface {
	Start(query string)
	AfterQueryEmbedding(vector []float32)
	AfterSimilaritySearch(matches []core.SimilarityMatch)
	AfterChunkHydration(chunks []*core.Chunk)
	Finish(results []*core.RetrievedChunk)
}

// noopMonitor is a no-op implementation of RetrievalMonitor
type noopMonitor struct{}

var _ RetrievalMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                 {}
func (n *noopMonitor) AfterQueryEmbedding(_ []float32)                {}
func (n *noopMonitor) AfterSimilaritySearch(_ []core.SimilarityMatch) {}
func (n *noopMonitor) AfterChunkHydration(_ []*core.Chunk)            {}
func (n *noopMonitor) Finish(_ []*core.RetrievedChunk)                {}
