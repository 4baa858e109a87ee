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

import "fmt"

// ValidateSource validates a Source according to domain rules.
//
// Validation rules:
//   - TenantId and AgentId must be set
//   - Name must not be empty
//   - Kind must be valid and agree with the Spec variant tag
//
// NOT validated (populated by the pipeline):
//   - ChunkCount (set when the source becomes ready)
//   - ErrorMessage (set when the source errors)
//   - ID (0 is valid from database sequences)
func ValidateSource(source *Source) error {
	if source == nil {
		return fmt.Errorf("%w: source is nil", ErrInvalidSource)
	}

	if source.TenantId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSource, ErrMissingTenant)
	}

	if source.AgentId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSource, ErrMissingAgent)
	}

	if source.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSource, ErrEmptyName)
	}

	if err := ValidateSourceKind(source.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}

	if source.Spec == nil {
		return fmt.Errorf("%w: spec is nil", ErrInvalidSource)
	}

	if source.Spec.SpecKind() != source.Kind {
		return fmt.Errorf("%w: %w", ErrInvalidSource, ErrSpecKindMismatch)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - TenantId and AgentId must be set
//   - Content must not be empty
//   - Vector must not be empty; dimensionality is checked against the
//     configured embedding dimensions at the storage layer
//   - Ordinal must not be negative
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.TenantId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrMissingTenant)
	}

	if chunk.AgentId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrMissingAgent)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if len(chunk.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyVector)
	}

	if chunk.Ordinal < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeOrdinal)
	}

	return nil
}

// ValidateJob validates a Job according to domain rules.
//
// Validation rules:
//   - TenantId must be set
//   - IdempotencyKey must not be empty
//   - MaxAttempts must be positive
//   - Kind must be valid
func ValidateJob(job *Job) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}

	if job.TenantId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrMissingTenant)
	}

	if job.IdempotencyKey == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyIdempotencyKey)
	}

	if job.MaxAttempts <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrInvalidMaxAttempts)
	}

	if err := ValidateSourceKind(job.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	return nil
}

// ValidateSourceKind validates that a SourceKind has a valid value.
func ValidateSourceKind(kind SourceKind) error {
	switch kind {
	case SourceKindFile, SourceKindWebsite, SourceKindText, SourceKindQA,
		SourceKindWorkspacePage, SourceKindCloudFile:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidSourceKind, kind)
	}
}
