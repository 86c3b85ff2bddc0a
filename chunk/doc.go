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


// Package chunk splits normalized document text into overlapping,
// token-bounded chunks.
//
// Boundaries prefer paragraph breaks, then sentence ends, then plain
// whitespace inside a bounded look-back window, and only fall back to a hard
// cut inside a word when a single word exceeds the chunk size. Token counting
// is delegated to a Counter so callers can match the tokenizer of their
// embedding or generation model.
//
// Every chunk records its byte range in the source text and the length of the
// prefix it shares with the previous chunk, so Reconstruct can rebuild the
// original text exactly.
package chunk
