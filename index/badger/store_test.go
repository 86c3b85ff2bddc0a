package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/docproc/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func chunkRecords(docID string, texts ...string) []index.ChunkRecord {
	out := make([]index.ChunkRecord, len(texts))
	for i, text := range texts {
		out[i] = index.ChunkRecord{
			ID:         index.ChunkID(docID, i),
			DocumentID: docID,
			ChunkIndex: i,
			Text:       text,
			Metadata:   map[string]string{"chunk_index": string(rune('0' + i))},
		}
	}
	return out
}

func TestOpen_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	store, err := Open(dir)
	require.NoError(t, err)
	assert.False(t, store.IsClosed())
	require.NoError(t, store.Close())
	assert.True(t, store.IsClosed())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpen_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestIndexAndGetDocument(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	doc := index.DocumentRecord{ID: "doc1", Filename: "a.txt", Summary: "sum", ChunkCount: 2}
	require.NoError(t, store.IndexDocument(ctx, doc, chunkRecords("doc1", "alpha beta", "gamma delta")))

	got, err := store.GetDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.Filename)
	assert.Equal(t, 2, got.ChunkCount)

	chunks, err := store.Chunks(ctx, "doc1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "alpha beta", chunks[0].Text)
	assert.Equal(t, "gamma delta", chunks[1].Text)
}

func TestIndexDocument_EmptyID(t *testing.T) {
	store := newStore(t)
	err := store.IndexDocument(context.Background(), index.DocumentRecord{}, nil)
	assert.ErrorIs(t, err, ErrInvalidDocumentID)
}

func TestIndexDocument_ForeignChunk(t *testing.T) {
	store := newStore(t)
	err := store.IndexDocument(context.Background(),
		index.DocumentRecord{ID: "doc1"}, chunkRecords("doc2", "text"))
	assert.Error(t, err)

	_, err = store.GetDocument(context.Background(), "doc1")
	assert.ErrorIs(t, err, index.ErrNotFound)
}

func TestIndexDocument_ReplacesChunks(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.IndexDocument(ctx, index.DocumentRecord{ID: "doc1"},
		chunkRecords("doc1", "one", "two", "three")))
	require.NoError(t, store.IndexDocument(ctx, index.DocumentRecord{ID: "doc1"},
		chunkRecords("doc1", "uno")))

	chunks, err := store.Chunks(ctx, "doc1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "uno", chunks[0].Text)
}

func TestChunks_PrefixIsolation(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.IndexDocument(ctx, index.DocumentRecord{ID: "doc1"}, chunkRecords("doc1", "a")))
	require.NoError(t, store.IndexDocument(ctx, index.DocumentRecord{ID: "doc10"}, chunkRecords("doc10", "b", "c")))

	chunks, err := store.Chunks(ctx, "doc1")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)

	docs, err := store.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc1", docs[0].ID)
	assert.Equal(t, "doc10", docs[1].ID)
}

func TestChunks_OrderedPastNine(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	texts := make([]string, 12)
	for i := range texts {
		texts[i] = "chunk"
	}
	require.NoError(t, store.IndexDocument(ctx, index.DocumentRecord{ID: "d"}, chunkRecords("d", texts...)))

	chunks, err := store.Chunks(ctx, "d")
	require.NoError(t, err)
	require.Len(t, chunks, 12)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
	}
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.IndexDocument(ctx, index.DocumentRecord{ID: "doc1"}, chunkRecords("doc1", "a", "b")))
	require.NoError(t, store.DeleteDocument(ctx, "doc1"))

	_, err := store.GetDocument(ctx, "doc1")
	assert.ErrorIs(t, err, index.ErrNotFound)

	chunks, err := store.Chunks(ctx, "doc1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	assert.ErrorIs(t, store.DeleteDocument(ctx, "doc1"), index.ErrNotFound)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.IndexDocument(ctx, index.DocumentRecord{ID: "doc1"}, chunkRecords("doc1",
		"Revenue growth was strong this quarter.",
		"Costs were flat.",
		"Revenue fell in the north region.",
	)))
	require.NoError(t, store.IndexDocument(ctx, index.DocumentRecord{ID: "doc2"}, chunkRecords("doc2",
		"Growth of revenue and revenue growth again.",
	)))

	t.Run("ranked", func(t *testing.T) {
		hits, err := store.Search(ctx, "revenue growth", index.SearchOptions{})
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, "doc2", hits[0].Chunk.DocumentID)
		for i := 1; i < len(hits); i++ {
			assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
		}
	})

	t.Run("limit", func(t *testing.T) {
		hits, err := store.Search(ctx, "revenue", index.SearchOptions{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})

	t.Run("document filter", func(t *testing.T) {
		hits, err := store.Search(ctx, "revenue", index.SearchOptions{DocumentID: "doc1"})
		require.NoError(t, err)
		require.Len(t, hits, 2)
		for _, h := range hits {
			assert.Equal(t, "doc1", h.Chunk.DocumentID)
		}
	})

	t.Run("match all", func(t *testing.T) {
		hits, err := store.Search(ctx, "revenue growth", index.SearchOptions{MatchAll: true})
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("empty query", func(t *testing.T) {
		_, err := store.Search(ctx, "the of and", index.SearchOptions{})
		assert.ErrorIs(t, err, index.ErrEmptyQuery)
	})
}

func TestSearch_CanceledContext(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.IndexDocument(context.Background(), index.DocumentRecord{ID: "doc1"},
		chunkRecords("doc1", "revenue")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Search(ctx, "revenue", index.SearchOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
