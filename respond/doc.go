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


// Package respond finalizes generated answers after streaming ends.
//
// The Finalizer takes the full draft of a streamed answer, runs it
// through the response judge, and commits the durable record: the
// draft verbatim when it passes, or the configured fallback message
// with the original draft preserved alongside the evaluation when it
// does not. Token usage is recorded exactly once per message, so a
// retried finalization never double-counts. Finalization detaches from
// the caller's cancellation — a client disconnecting mid-stream never
// leaves a half-finalized message behind.
package respond
