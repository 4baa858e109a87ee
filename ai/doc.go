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


// Package ai provides abstractions for the AI services used in Groundline.
//
// This package defines interfaces for text embedding and response judging.
// The ingestion pipeline, retriever, and finalizer depend on these
// abstractions rather than on concrete implementations.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: generates vector embeddings from text
//   - Judge: scores a drafted answer for safety, groundedness, and brand
//     alignment before it reaches the end user
//   - AIProvider: aggregates AI services for convenient initialization
//
// # Implementation Packages
//
// The ai package includes two implementation sub-packages:
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// INTERFACE types to enforce abstraction. Test utility constructors
// (mock.NewMockEmbedder, mock.NewMockJudge) return CONCRETE types so that
// tests can inject behavior via function fields and assert on call counts.
//
// # Usage Example
//
//	config := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"),
//	    ai.WithEmbeddingModel("text-embedding-3-small"),
//	)
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Hello world")
//	verdict, err := provider.Judge().Evaluate(ctx, &ai.JudgeRequest{...})
package ai
