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


// Package retrieval turns a user query into citation-ready knowledge chunks.
//
// The Retriever embeds the query, runs a similarity search over the
// agent's chunk keyspace and hydrates the full chunk records for the
// matches, preserving ranking order. Results carry the source metadata
// a caller needs to attribute an answer: source id, kind, name,
// optional page number or URL, and the chunk's ordinal within its
// source.
package retrieval
