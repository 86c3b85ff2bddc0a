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


package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNilSource indicates a nil SourceDocument was supplied.
	ErrNilSource = errors.New("source document is nil")

	// ErrInvalidFormat indicates a declared Format outside the supported set.
	ErrInvalidFormat = errors.New("invalid declared format")

	// ErrChunkOrder indicates chunk indices are not sequential from zero.
	ErrChunkOrder = errors.New("chunk indices are not sequential")

	// ErrChunkTooLarge indicates a chunk exceeds the configured token limit.
	ErrChunkTooLarge = errors.New("chunk exceeds token limit")
)

// ValidateSourceDocument validates a SourceDocument before extraction.
//
// Validation rules:
//   - the document must not be nil
//   - Data or Path must be set
//   - a declared Format must be one of the supported formats
//
// NOT validated:
//   - that Path exists (reported as an extraction error when read)
//   - that the extension is supported (reported by the dispatcher)
func ValidateSourceDocument(doc *SourceDocument) error {
	if doc == nil {
		return ValidationError("", ErrNilSource)
	}
	if len(doc.Data) == 0 && doc.Path == "" {
		return ValidationError("", ErrNoSource)
	}
	if doc.Format != "" && !doc.Format.Valid() {
		return ValidationError(fmt.Sprintf("format %q", doc.Format), ErrInvalidFormat)
	}
	return nil
}

// ValidateChunks checks the ordering and upper-bound invariants of a chunk
// sequence produced with the given chunk size.
func ValidateChunks(chunks []DocumentChunk, chunkSize int) error {
	for i, c := range chunks {
		if c.Index != i {
			return fmt.Errorf("%w: position %d has index %d", ErrChunkOrder, i, c.Index)
		}
		if c.TokenCount > chunkSize {
			return fmt.Errorf("%w: chunk %d has %d tokens, limit %d", ErrChunkTooLarge, i, c.TokenCount, chunkSize)
		}
	}
	return nil
}
