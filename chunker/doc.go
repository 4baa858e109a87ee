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


// Package chunker splits cleaned text into overlapping, token-bounded
// segments for embedding and retrieval.
//
// Token counts are approximated at four characters per token, which keeps
// the splitter a pure function with no tokenizer dependency. Within each
// window the splitter prefers to break after a sentence end, falls back to
// the nearest word boundary, and hard-cuts only when neither exists.
// Consecutive segments overlap so that retrieval does not lose context at
// segment edges.
//
// Split is deterministic: the same input always yields the same segments.
package chunker
