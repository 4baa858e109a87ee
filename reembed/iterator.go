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

	"github.com/tessara/groundline/core"
	"github.com/tessara/groundline/storage"
)

// SourceIterator walks an agent's ready sources together with their
// stored chunks, one source at a time.
type SourceIterator struct {
	sources storage.SourceRepository
	chunks  storage.ChunkRepository
}

// NewSourceIterator creates a new source iterator.
func NewSourceIterator(sources storage.SourceRepository, chunks storage.ChunkRepository) *SourceIterator {
	return &SourceIterator{
		sources: sources,
		chunks:  chunks,
	}
}

// ForEach calls fn for each ready source owned by the agent, passing
// the source together with its chunks in ordinal order. Sources that
// are not ready or have no stored chunks are skipped. Iteration stops
// on the first error from fn. Context cancellation is checked between
// sources.
func (it *SourceIterator) ForEach(ctx context.Context, tenantID, agentID core.ID, fn func(*core.Source, []*core.Chunk) error) error {
	sources, err := it.sources.ListSourcesByAgent(ctx, tenantID, agentID)
	if err != nil {
		return err
	}

	for _, source := range sources {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if source.Status != core.SourceStatusReady {
			continue
		}

		chunks, err := it.chunks.ListChunksBySource(ctx, tenantID, agentID, source.Id)
		if err != nil {
			return err
		}
		if len(chunks) == 0 {
			continue
		}

		if err := fn(source, chunks); err != nil {
			return err
		}
	}

	return nil
}
