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


package storage

import (
	"context"

	"github.com/tessara/groundline/core"
)

const (
	// MinSearchK and MaxSearchK bound the k parameter of FindSimilar.
	// Out-of-range values are clamped, not rejected.
	MinSearchK = 1
	MaxSearchK = 256
)

// ChunkRepository provides operations for managing embedded chunks.
type ChunkRepository interface {
	// UpsertChunks inserts or replaces chunks. Chunk identity is derived
	// from (source id, ordinal), so re-running the same storage batch is
	// a no-op rather than a duplication. Returns ErrDimensionMismatch if
	// a vector length differs from the repository's configured
	// dimensionality, and ErrModelMismatch if the batch would mix
	// embedding models within one source.
	UpsertChunks(ctx context.Context, chunks ...*core.Chunk) error

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks),
	// in the order of the requested IDs.
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// DeleteChunksBySource removes all chunks belonging to a source.
	DeleteChunksBySource(ctx context.Context, tenantID, agentID, sourceID core.ID) error

	// CountChunksBySource returns the number of chunks stored for a source.
	CountChunksBySource(ctx context.Context, tenantID, agentID, sourceID core.ID) (int, error)

	// ListChunksBySource returns all chunks belonging to a source, in
	// ordinal order.
	ListChunksBySource(ctx context.Context, tenantID, agentID, sourceID core.ID) ([]*core.Chunk, error)

	// FindSimilar ranks chunks belonging to exactly (tenantID, agentID)
	// by similarity to the query vector and returns the top k matches in
	// descending score order, ties broken by insertion order. k is
	// clamped to [MinSearchK, MaxSearchK]. Chunks from any other tenant
	// or agent are never considered, regardless of score.
	FindSimilar(ctx context.Context, tenantID, agentID core.ID, vector []float32, k int) ([]core.SimilarityMatch, error)

	// Close releases repository resources.
	Close() error
}

// SourceRepository provides operations for managing source records.
type SourceRepository interface {
	// AddSource persists a new source, generating its ID from sequence
	// and setting InsertedAt/UpdatedAt. The source is validated first.
	AddSource(ctx context.Context, source *core.Source) (*core.Source, error)

	// GetSource retrieves a source by ID.
	// Returns ErrNotFound if the source doesn't exist.
	// Tombstoned sources are still returned; callers check Deleted().
	GetSource(ctx context.Context, id core.ID) (*core.Source, error)

	// UpdateSource replaces an existing source record and bumps UpdatedAt.
	// Returns ErrNotFound if the source doesn't exist and ErrSourceDeleted
	// if it has been tombstoned.
	UpdateSource(ctx context.Context, source *core.Source) (*core.Source, error)

	// UpdateSourceStatus transitions a source's lifecycle status.
	// chunkCount is recorded for SourceStatusReady; errorMessage is
	// recorded verbatim for SourceStatusError.
	UpdateSourceStatus(ctx context.Context, id core.ID, status core.SourceStatus, chunkCount int, errorMessage string) (*core.Source, error)

	// ListSourcesByAgent returns the live (non-tombstoned) sources owned
	// by an agent, in insertion order.
	ListSourcesByAgent(ctx context.Context, tenantID, agentID core.ID) ([]*core.Source, error)

	// DeleteSource tombstones a source and removes its chunks, so the
	// deleted knowledge is immediately gone from similarity search.
	// The row itself is kept so that job history and citations remain
	// resolvable.
	DeleteSource(ctx context.Context, id core.ID) error

	// Close releases repository resources.
	Close() error
}

// JobRepository provides operations for managing durable ingestion jobs.
type JobRepository interface {
	// CreateJob persists a new job unless one already exists for the
	// job's idempotency key. Returns the stored job and alreadyExists
	// reporting whether an existing record was returned instead of a new
	// one being created. The check and insert happen in one transaction.
	CreateJob(ctx context.Context, job *core.Job) (stored *core.Job, alreadyExists bool, err error)

	// GetJob retrieves a job by ID.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id core.ID) (*core.Job, error)

	// GetJobByIdempotencyKey retrieves a job by its idempotency key.
	// Returns ErrNotFound if no job has the key.
	GetJobByIdempotencyKey(ctx context.Context, key string) (*core.Job, error)

	// UpdateJob replaces an existing job record.
	// Returns ErrNotFound if the job doesn't exist.
	UpdateJob(ctx context.Context, job *core.Job) (*core.Job, error)

	// ListJobsByStatus returns jobs currently in the given status.
	ListJobsByStatus(ctx context.Context, status core.JobStatus) ([]*core.Job, error)

	// Close releases repository resources.
	Close() error
}

// UsageRepository provides exactly-once recording of usage events.
type UsageRepository interface {
	// RecordUsage persists a usage event keyed by its message ID.
	// The first call for a message ID stores the event and returns true;
	// subsequent calls are no-ops returning false, so retried
	// finalization never double-counts token usage.
	RecordUsage(ctx context.Context, event *core.UsageEvent) (recorded bool, err error)

	// GetUsage retrieves the usage event for a message.
	// Returns ErrNotFound if none was recorded.
	GetUsage(ctx context.Context, messageID core.ID) (*core.UsageEvent, error)

	// Close releases repository resources.
	Close() error
}

// ClampK clamps a search k to [MinSearchK, MaxSearchK].
func ClampK(k int) int {
	if k < MinSearchK {
		return MinSearchK
	}
	if k > MaxSearchK {
		return MaxSearchK
	}
	return k
}
