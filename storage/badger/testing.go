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


package badger

import "github.com/tessara/groundline/storage"

// Repositories bundles the four repositories backed by one Backend.
type Repositories struct {
	Chunks  storage.ChunkRepository
	Sources storage.SourceRepository
	Jobs    storage.JobRepository
	Usage   storage.UsageRepository

	backend *Backend
}

// Backend exposes the underlying backend, mainly for tests.
func (r *Repositories) Backend() *Backend {
	return r.backend
}

// Close closes the repositories and then the backend.
func (r *Repositories) Close() error {
	r.Chunks.Close()
	r.Sources.Close()
	r.Jobs.Close()
	r.Usage.Close()
	return r.backend.Close()
}

// NewRepositories creates all repositories over an already-open backend.
// dimensions is the expected chunk vector length; 0 disables the check.
func NewRepositories(backend *Backend, dimensions int) (*Repositories, error) {
	chunks, err := NewChunkRepository(backend, dimensions)
	if err != nil {
		return nil, err
	}

	sources, err := NewSourceRepository(backend)
	if err != nil {
		chunks.Close()
		return nil, err
	}

	jobs, err := NewJobRepository(backend)
	if err != nil {
		sources.Close()
		chunks.Close()
		return nil, err
	}

	usage, err := NewUsageRepository(backend)
	if err != nil {
		jobs.Close()
		sources.Close()
		chunks.Close()
		return nil, err
	}

	return &Repositories{
		Chunks:  chunks,
		Sources: sources,
		Jobs:    jobs,
		Usage:   usage,
		backend: backend,
	}, nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// dimensions is the expected chunk vector length; 0 disables the check.
// Caller must close the returned Repositories when done.
func NewMemoryRepositories(dimensions int) (*Repositories, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	repos, err := NewRepositories(backend, dimensions)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return repos, nil
}
