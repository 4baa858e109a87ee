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


package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs. It is used for
// chunk identities (source id + ordinal) and for idempotency keys, so that
// re-running the same logical operation maps to the same record.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Chunk is an immutable unit of retrievable text derived from a Source.
// Chunks are owned by their Source and deleted with it; the vector is
// normalized to unit length before storage so that dot product equals
// cosine similarity.
type Chunk struct {
	Id             ID
	TenantId       ID
	AgentId        ID
	SourceId       ID
	Ordinal        int // position within the source, contiguous from 0
	Content        string
	Vector         []float32
	EmbeddingModel string
	SourceKind     SourceKind
	SourceName     string
	PageNumber     int    // 0 = not applicable
	URL            string // empty = not applicable
	InsertedAt     time.Time
}

// ChunkIdentity derives the deterministic chunk ID for a source and ordinal.
// Upserting the same (source, ordinal) twice produces the same ID, which is
// what makes chunk storage an idempotent step.
func ChunkIdentity(sourceID ID, ordinal int) ID {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf, uint64(sourceID))
	binary.BigEndian.PutUint64(buf[8:], uint64(ordinal))
	return IDFromContent(string(buf))
}

// JobStatus is the lifecycle state of an ingestion job.
type JobStatus int

const (
	// JobStatusPending indicates the job is waiting to be picked up.
	JobStatusPending JobStatus = iota + 1
	// JobStatusProcessing indicates the job is currently running.
	JobStatusProcessing
	// JobStatusCompleted indicates the job finished successfully. Terminal.
	JobStatusCompleted
	// JobStatusFailed indicates the job exhausted its attempts. Terminal.
	JobStatusFailed
)

// String returns the lowercase name of the status.
func (s JobStatus) String() string {
	switch s {
	case JobStatusPending:
		return "pending"
	case JobStatusProcessing:
		return "processing"
	case JobStatusCompleted:
		return "completed"
	case JobStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// DefaultMaxAttempts is the retry budget assigned to new jobs.
const DefaultMaxAttempts = 3

// JobError is one timestamped entry in a job's error history.
// History entries are append-only; earlier attempts are never overwritten.
type JobError struct {
	At      time.Time
	Message string
}

// Job is a durable record of one ingestion attempt sequence for one Source.
// Mutation is restricted to the state machine implemented by
// ingestion.Controller; completed and failed jobs are read-only.
type Job struct {
	Id             ID
	TenantId       ID
	AgentId        ID
	SourceId       ID
	Kind           SourceKind
	Status         JobStatus
	AttemptCount   int
	MaxAttempts    int
	Progress       int // percent, clamped to [0,100]
	StepCursor     int // index of the last completed pipeline step, -1 = none
	ScheduledAt    time.Time
	StartedAt      time.Time
	CompletedAt    time.Time
	HeartbeatAt    time.Time
	LastError      string
	History        []JobError
	IdempotencyKey string
}

// SimilarityMatch is a chunk match from vector similarity search.
// Full chunk hydration is a separate lookup by ID list.
type SimilarityMatch struct {
	ChunkId ID
	Score   float32
}

// RetrievedChunk is a citation-ready retrieval result: a ranked chunk with
// the metadata a caller needs to attribute the text to its source.
type RetrievedChunk struct {
	ChunkId    ID
	Score      float32
	Content    string
	SourceId   ID
	SourceKind SourceKind
	SourceName string
	PageNumber int
	URL        string
	Ordinal    int
}

// Citation attributes part of a generated answer to a stored chunk.
type Citation struct {
	ChunkId    ID
	SourceId   ID
	SourceName string
	Snippet    string
	PageNumber int
	URL        string
}

// JudgeEvaluation records the quality-gate verdict for one generated answer.
// Scores are in [0,1]. Flagged is an independent operator-visibility signal
// from the judge model, not derived from the pass thresholds.
type JudgeEvaluation struct {
	Passed              bool
	SafetyScore         float64
	GroundednessScore   float64
	BrandAlignmentScore float64
	Reasoning           string
	Flagged             bool
	Malformed           bool
}

// Usage captures token accounting for one generated answer.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// UsageEvent is a billing record persisted exactly once per message.
type UsageEvent struct {
	MessageId  ID
	TenantId   ID
	AgentId    ID
	Usage      Usage
	RecordedAt time.Time
}
