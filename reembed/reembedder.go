// Copyright 2026 Tessara Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tessara/groundline/ai"
	"github.com/tessara/groundline/core"
	"github.com/tessara/groundline/storage"
)

// Config holds configuration for the reembedding run.
type Config struct {
	// BatchSize is the maximum number of chunk texts per embedding call
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed embedding calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

// Reembedder rewrites an agent's stored vectors with a target
// embedding model.
type Reembedder struct {
	model     string
	config    *Config
	progress  io.Writer
	processor *SourceProcessor
	iterator  *SourceIterator
}

// NewReembedder creates a new reembedder targeting the given model.
// config may be nil to use DefaultConfig; progress may be nil to
// discard progress output.
func NewReembedder(sources storage.SourceRepository, chunks storage.ChunkRepository, embedder ai.Embedder, model string, config *Config, progress io.Writer) (*Reembedder, error) {
	if sources == nil {
		return nil, ErrSourceRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if model == "" {
		return nil, ErrModelRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		model:     model,
		config:    config,
		progress:  progress,
		processor: NewSourceProcessor(chunks, embedder, model, config.BatchSize, config.MaxRetries, config.RetryDelay),
		iterator:  NewSourceIterator(sources, chunks),
	}, nil
}

// Run re-embeds every ready source owned by the agent. Sources whose
// chunks already carry the target model are counted but left alone, so
// an interrupted run can simply be repeated.
func (r *Reembedder) Run(ctx context.Context, tenantID, agentID core.ID) error {
	total, sourceCount, err := r.countChunks(ctx, tenantID, agentID)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}

	fmt.Fprintf(r.progress, "Reembedding %d chunks across %d sources with model %q\n",
		total, sourceCount, r.model)

	if total == 0 {
		return nil
	}

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	rewritten := 0
	skipped := 0
	err = r.iterator.ForEach(ctx, tenantID, agentID, func(source *core.Source, chunks []*core.Chunk) error {
		if upToDate(chunks, r.model) {
			skipped++
			tracker.Increment(len(chunks))
			return nil
		}

		if err := r.processor.Process(ctx, source, chunks); err != nil {
			return fmt.Errorf("source %d (%s): %w", source.Id, source.Name, err)
		}

		rewritten++
		tracker.Increment(len(chunks))
		return nil
	})
	if err != nil {
		return err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	rate := float64(total) / elapsed.Seconds()
	fmt.Fprintf(r.progress, "Done: %d sources rewritten, %d already current, %d chunks in %s (%.1f chunks/s)\n",
		rewritten, skipped, total, elapsed.Round(time.Millisecond), rate)

	return nil
}

// countChunks totals the stored chunks of the agent's ready sources.
func (r *Reembedder) countChunks(ctx context.Context, tenantID, agentID core.ID) (chunks, sources int, err error) {
	err = r.iterator.ForEach(ctx, tenantID, agentID, func(_ *core.Source, batch []*core.Chunk) error {
		chunks += len(batch)
		sources++
		return nil
	})
	return chunks, sources, err
}

// upToDate reports whether every chunk already carries the target model.
func upToDate(chunks []*core.Chunk, model string) bool {
	for _, chunk := range chunks {
		if chunk.EmbeddingModel != model {
			return false
		}
	}
	return true
}
