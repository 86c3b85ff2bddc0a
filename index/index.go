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


package index

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strconv"

	"github.com/poiesic/docproc/core"
)

// PreviewRunes is the length of the chunk_preview metadata value.
const PreviewRunes = 200

var (
	// ErrNotFound is returned when a document is not in the index.
	ErrNotFound = errors.New("document not found")

	// ErrEmptyQuery is returned for queries without searchable terms.
	ErrEmptyQuery = errors.New("query has no searchable terms")
)

// ChunkRecord is the searchable unit sent to an index.
type ChunkRecord struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Text       string
	Metadata   map[string]string
}

// DocumentRecord describes a whole processed document.
type DocumentRecord struct {
	ID         string
	Filename   string
	Summary    string
	ChunkCount int
	UnitCount  int
	Metadata   map[string]string
}

// Hit is a chunk matched by a search.
type Hit struct {
	Chunk ChunkRecord
	Score float64
}

// SearchOptions narrows a search.
type SearchOptions struct {
	// Limit caps the number of hits. Zero means 10.
	Limit int
	// DocumentID restricts hits to one document.
	DocumentID string
	// MatchAll requires every query term to appear in a chunk.
	MatchAll bool
}

// Indexer stores records for later search.
type Indexer interface {
	IndexDocument(ctx context.Context, doc DocumentRecord, chunks []ChunkRecord) error
	DeleteDocument(ctx context.Context, id string) error
}

// Searcher finds chunks matching a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]Hit, error)
}

// ChunkID returns the record ID of chunk index of a document.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// ChunkRecords converts the chunks of result. Each record's metadata holds
// the chunk's own metadata, its position and token counts and a preview of
// its text.
func ChunkRecords(result *core.ProcessResult) []ChunkRecord {
	records := make([]ChunkRecord, len(result.Chunks))
	for i, c := range result.Chunks {
		md := maps.Clone(c.Metadata)
		if md == nil {
			md = make(map[string]string, 6)
		}
		md["document_id"] = result.DocumentID
		md["filename"] = result.Filename
		md["chunk_index"] = strconv.Itoa(c.Index)
		md["token_count"] = strconv.Itoa(c.TokenCount)
		md["overlap_tokens"] = strconv.Itoa(c.OverlapTokens)
		md["chunk_preview"] = Preview(c.Text, PreviewRunes)

		records[i] = ChunkRecord{
			ID:         ChunkID(result.DocumentID, c.Index),
			DocumentID: result.DocumentID,
			ChunkIndex: c.Index,
			Text:       c.Text,
			Metadata:   md,
		}
	}
	return records
}

// NewDocumentRecord converts the document level fields of result.
func NewDocumentRecord(result *core.ProcessResult) DocumentRecord {
	rec := DocumentRecord{
		ID:         result.DocumentID,
		Filename:   result.Filename,
		ChunkCount: len(result.Chunks),
		UnitCount:  result.UnitCount,
		Metadata:   maps.Clone(result.Metadata),
	}
	if rec.Metadata == nil {
		rec.Metadata = make(map[string]string)
	}
	if result.Summary != nil {
		rec.Summary = result.Summary.Text
	}
	rec.Metadata["text_length"] = strconv.Itoa(len([]rune(result.Text)))
	return rec
}

// IndexResult writes result to idx.
func IndexResult(ctx context.Context, idx Indexer, result *core.ProcessResult) error {
	return idx.IndexDocument(ctx, NewDocumentRecord(result), ChunkRecords(result))
}

// Preview returns at most n runes of text.
func Preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
