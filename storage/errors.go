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

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates a duplicate key violation.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrDimensionMismatch indicates a chunk vector whose length differs
	// from the configured embedding dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrModelMismatch indicates an attempt to store chunks for a source
	// under a different embedding model than the source's existing chunks.
	// A model change requires full re-ingestion of the source.
	ErrModelMismatch = errors.New("embedding model mismatch for source")

	// ErrSourceDeleted indicates an operation on a tombstoned source.
	ErrSourceDeleted = errors.New("source is deleted")
)
