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


package ingestion

import (
	"context"
	"fmt"

	"github.com/tessara/groundline/core"
)

// Fetcher produces the plain text of one source kind. Fetch errors are
// transient by default; wrap with Fatal for conditions a retry cannot
// fix (unsupported media type, malformed spec).
type Fetcher interface {
	// Kind returns the source kind this fetcher handles.
	Kind() core.SourceKind

	// Fetch returns the source's plain text content.
	Fetch(ctx context.Context, source *core.Source) (string, error)
}

// Extractor converts raw document bytes into plain text. Document
// parsing lives outside this module; the file fetcher consumes it as a
// collaborator.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mediaType string) (string, error)
}

// BlobLoader retrieves the raw bytes behind a file-backed source, for
// example from an upload bucket or a connected cloud drive.
type BlobLoader interface {
	Load(ctx context.Context, source *core.Source) ([]byte, error)
}

// FetcherRegistry dispatches fetching on a source's kind tag.
type FetcherRegistry struct {
	fetchers map[core.SourceKind]Fetcher
}

// NewFetcherRegistry creates a registry with the given fetchers. Later
// registrations for the same kind replace earlier ones.
func NewFetcherRegistry(fetchers ...Fetcher) *FetcherRegistry {
	r := &FetcherRegistry{fetchers: make(map[core.SourceKind]Fetcher)}
	for _, f := range fetchers {
		r.Register(f)
	}
	return r
}

// Register adds a fetcher for its kind.
func (r *FetcherRegistry) Register(f Fetcher) {
	r.fetchers[f.Kind()] = f
}

// Fetch dispatches to the fetcher registered for the source's kind.
// An unregistered kind is a non-retryable error.
func (r *FetcherRegistry) Fetch(ctx context.Context, source *core.Source) (string, error) {
	f, ok := r.fetchers[source.Kind]
	if !ok {
		return "", Fatal(fmt.Errorf("%w: %s", ErrUnknownSourceKind, source.Kind))
	}
	return f.Fetch(ctx, source)
}

// TextFetcher serves manually entered plain-text sources.
type TextFetcher struct{}

// Kind returns core.SourceKindText.
func (TextFetcher) Kind() core.SourceKind { return core.SourceKindText }

// Fetch returns the text held in the source's spec.
func (TextFetcher) Fetch(_ context.Context, source *core.Source) (string, error) {
	spec, ok := source.Spec.(core.TextSpec)
	if !ok {
		return "", Fatal(fmt.Errorf("%w: source %d is not text", ErrSpecMismatch, source.Id))
	}
	return spec.Content, nil
}

// QAFetcher serves manually entered question/answer pairs, rendering
// them as a single passage so the pair embeds and retrieves as a unit.
type QAFetcher struct{}

// Kind returns core.SourceKindQA.
func (QAFetcher) Kind() core.SourceKind { return core.SourceKindQA }

// Fetch renders the question/answer pair held in the source's spec.
func (QAFetcher) Fetch(_ context.Context, source *core.Source) (string, error) {
	spec, ok := source.Spec.(core.QASpec)
	if !ok {
		return "", Fatal(fmt.Errorf("%w: source %d is not a question/answer pair", ErrSpecMismatch, source.Id))
	}
	return fmt.Sprintf("Question: %s\nAnswer: %s", spec.Question, spec.Answer), nil
}

// FileFetcher serves uploaded documents: the loader supplies the raw
// bytes and the extractor turns them into plain text. Extraction
// failures are non-retryable; loading failures are transient.
type FileFetcher struct {
	loader    BlobLoader
	extractor Extractor
}

// NewFileFetcher creates a file fetcher from its collaborators.
func NewFileFetcher(loader BlobLoader, extractor Extractor) (*FileFetcher, error) {
	if loader == nil {
		return nil, fmt.Errorf("blob loader required")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor required")
	}
	return &FileFetcher{loader: loader, extractor: extractor}, nil
}

// Kind returns core.SourceKindFile.
func (f *FileFetcher) Kind() core.SourceKind { return core.SourceKindFile }

// Fetch loads the document bytes and extracts their plain text.
func (f *FileFetcher) Fetch(ctx context.Context, source *core.Source) (string, error) {
	spec, ok := source.Spec.(core.FileSpec)
	if !ok {
		return "", Fatal(fmt.Errorf("%w: source %d is not a file", ErrSpecMismatch, source.Id))
	}

	data, err := f.loader.Load(ctx, source)
	if err != nil {
		return "", fmt.Errorf("loading source %d: %w", source.Id, err)
	}

	text, err := f.extractor.Extract(ctx, data, spec.MediaType)
	if err != nil {
		return "", Fatal(fmt.Errorf("extracting source %d (%s): %w", source.Id, spec.MediaType, err))
	}
	return text, nil
}
