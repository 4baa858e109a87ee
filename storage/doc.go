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


// Package storage provides the storage abstraction layer for groundline.
//
// This package defines repository interfaces that decouple storage
// implementation from the ingestion and retrieval logic. It allows for
// different storage backends (BadgerDB, in-memory, etc.) to be used
// interchangeably.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - ChunkRepository: embedded chunk storage and similarity search
//   - SourceRepository: source lifecycle records
//   - JobRepository: durable ingestion job records with idempotent creation
//   - UsageRepository: exactly-once usage/billing events
//
// Similarity search is always scoped to a (tenant, agent) pair; the
// backend must make it impossible for a search to return a chunk from a
// different tenant or agent.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
