// Copyright 2025 Poiesic Systems
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


// Package pipeline runs documents through extraction, chunking and
// summarization.
//
// Each run moves through a fixed sequence of states. Extraction failures are
// always fatal; chunking and summarization failures degrade to an empty
// result plus a warning unless the caller marks the stage as required. The
// outcome of every stage is recorded on the result so callers can tell a
// stage skipped by request from one that ran and degraded.
//
// ProcessBatch runs many documents concurrently on a bounded ants pool and
// returns one result per input, in input order.
package pipeline
