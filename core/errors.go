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

import "errors"

// Domain validation errors
var (
	// ErrInvalidSource indicates a Source failed validation.
	ErrInvalidSource = errors.New("invalid source")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidJob indicates a Job failed validation.
	ErrInvalidJob = errors.New("invalid job")

	// ErrEmptyContent indicates a content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyName indicates a display name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrMissingTenant indicates a tenant ID is zero.
	ErrMissingTenant = errors.New("tenant id is required")

	// ErrMissingAgent indicates an agent ID is zero.
	ErrMissingAgent = errors.New("agent id is required")

	// ErrInvalidSourceKind indicates an invalid SourceKind value.
	ErrInvalidSourceKind = errors.New("invalid source kind")

	// ErrSpecKindMismatch indicates a Source's Spec variant disagrees with its Kind tag.
	ErrSpecKindMismatch = errors.New("source spec does not match source kind")

	// ErrInvalidMaxAttempts indicates a Job's retry budget is not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrEmptyIdempotencyKey indicates a Job is missing its idempotency key.
	ErrEmptyIdempotencyKey = errors.New("idempotency key cannot be empty")

	// ErrEmptyVector indicates a Chunk has no embedding vector.
	ErrEmptyVector = errors.New("embedding vector cannot be empty")

	// ErrNegativeOrdinal indicates a Chunk ordinal is negative.
	ErrNegativeOrdinal = errors.New("chunk ordinal cannot be negative")
)
