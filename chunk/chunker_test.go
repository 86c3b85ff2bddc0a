package chunk

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docproc/core"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func sentence(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(parts, " ") + "."
}

// prose builds text with sentence ends every 7 words and paragraph breaks
// every 40 words.
func prose(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(fmt.Sprintf("word%d", i))
		if i%7 == 6 {
			b.WriteString(".")
		}
		switch {
		case i == n-1:
		case i%40 == 39:
			b.WriteString("\n\n")
		default:
			b.WriteString(" ")
		}
	}
	return b.String()
}

func nonSpaceRunes(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// bpeTokens mimics a byte-pair encoder that glues a leading space onto the
// following word, so "a b" counts 2 while "a " plus "b" counts 3.
var bpeTokens = regexp.MustCompile(`\s?\S+|\s+`)

func bpeCounter(text string) int {
	return len(bpeTokens.FindAllStringIndex(text, -1))
}

// quarterRunes counts one token per started group of four runes.
func quarterRunes(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

func mustNew(t *testing.T, p Params, opts ...Option) *Chunker {
	t.Helper()
	c, err := New(p, opts...)
	require.NoError(t, err)
	return c
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{name: "defaults", params: DefaultParams()},
		{name: "zero overlap", params: Params{ChunkSize: 10, ChunkOverlap: 0, MinChunkSize: 0}},
		{name: "min equals size", params: Params{ChunkSize: 10, ChunkOverlap: 1, MinChunkSize: 10}},
		{name: "zero size", params: Params{ChunkSize: 0}, wantErr: true},
		{name: "negative overlap", params: Params{ChunkSize: 10, ChunkOverlap: -1}, wantErr: true},
		{name: "overlap equals size", params: Params{ChunkSize: 10, ChunkOverlap: 10}, wantErr: true},
		{name: "overlap exceeds size", params: Params{ChunkSize: 10, ChunkOverlap: 20}, wantErr: true},
		{name: "negative min", params: Params{ChunkSize: 10, MinChunkSize: -1}, wantErr: true},
		{name: "min exceeds size", params: Params{ChunkSize: 10, MinChunkSize: 11}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParams)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_RejectsInvalidParamsEagerly(t *testing.T) {
	_, err := New(Params{ChunkSize: 50, ChunkOverlap: 50})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestNew_RejectsBadOptions(t *testing.T) {
	_, err := New(DefaultParams(), WithCounter(nil))
	assert.ErrorIs(t, err, ErrCounterRequired)

	_, err = New(DefaultParams(), WithLookback(-1))
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestChunk_EmptyTextYieldsNoChunks(t *testing.T) {
	c := mustNew(t, DefaultParams())
	for _, text := range []string{"", "   ", "\n\n\t"} {
		chunks, err := c.Chunk(text, nil)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestChunk_ShortTextIsOneChunk(t *testing.T) {
	c := mustNew(t, DefaultParams())
	text := "A short document well under the minimum chunk size."

	chunks, err := c.Chunk(text, map[string]string{"source": "unit"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 9, chunks[0].TokenCount)
	assert.Equal(t, 0, chunks[0].OverlapTokens)
	assert.Equal(t, "unit", chunks[0].Metadata["source"])
}

func TestChunk_ExactlyChunkSizeIsOneChunk(t *testing.T) {
	c := mustNew(t, Params{ChunkSize: 20, ChunkOverlap: 5, MinChunkSize: 5})
	chunks, err := c.Chunk(words(20), nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 20, chunks[0].TokenCount)
}

func TestChunk_1400TokenDocument(t *testing.T) {
	c := mustNew(t, Params{ChunkSize: 512, ChunkOverlap: 50, MinChunkSize: 100})
	text := words(1400)

	chunks, err := c.Chunk(text, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, 512, chunks[0].TokenCount)
	assert.Equal(t, 512, chunks[1].TokenCount)
	assert.Equal(t, 476, chunks[2].TokenCount)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.LessOrEqual(t, ch.TokenCount, 512)
		assert.GreaterOrEqual(t, ch.TokenCount, 100)
		if i > 0 {
			assert.Equal(t, 50, ch.OverlapTokens, "chunk %d overlap", i)
			assert.True(t, strings.HasSuffix(chunks[i-1].Text, ch.Text[:ch.OverlapLen]))
		}
	}
	assert.True(t, strings.HasPrefix(chunks[1].Text, "w462 "))
	assert.Equal(t, text, Reconstruct(chunks))
}

func TestChunk_1400TokenProse(t *testing.T) {
	c := mustNew(t, Params{ChunkSize: 512, ChunkOverlap: 50, MinChunkSize: 100})
	text := prose(1400)

	chunks, err := c.Chunk(text, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, ch := range chunks {
		assert.LessOrEqual(t, ch.TokenCount, 512)
		assert.GreaterOrEqual(t, ch.TokenCount, 100, "chunk %d", i)
		if i > 0 {
			assert.Equal(t, 50, ch.OverlapTokens, "chunk %d overlap", i)
		}
	}
	assert.True(t, strings.HasSuffix(chunks[0].Text, "\n\n"), "first cut lands on a paragraph break")
	assert.Equal(t, text, Reconstruct(chunks))
}

func TestChunk_MergingTokenizer(t *testing.T) {
	c := mustNew(t, Params{ChunkSize: 512, ChunkOverlap: 50, MinChunkSize: 100}, WithCounter(bpeCounter))
	text := words(1400)

	chunks, err := c.Chunk(text, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, ch := range chunks {
		assert.Equal(t, bpeCounter(ch.Text), ch.TokenCount)
		assert.LessOrEqual(t, ch.TokenCount, 512, "chunk %d", i)
		if i > 0 {
			assert.Equal(t, 50, ch.OverlapTokens, "chunk %d overlap", i)
		}
	}
	assert.Equal(t, 512, chunks[0].TokenCount)
	assert.Equal(t, 476, chunks[2].TokenCount)
	assert.Equal(t, text, Reconstruct(chunks))
}

func TestChunk_HardCutIncludesTrailingSpace(t *testing.T) {
	c := mustNew(t, Params{ChunkSize: 2, ChunkOverlap: 0, MinChunkSize: 0}, WithCounter(quarterRunes))
	text := "abcdefgh x"

	chunks, err := c.Chunk(text, nil)
	require.NoError(t, err)
	for i, ch := range chunks {
		assert.LessOrEqual(t, ch.TokenCount, 2, "chunk %d", i)
	}
	assert.Equal(t, text, Reconstruct(chunks))
}

func TestChunk_InvariantsWithMergingTokenizers(t *testing.T) {
	counters := map[string]Counter{"bpe": bpeCounter, "quarter": quarterRunes}
	texts := map[string]string{
		"prose":   prose(900),
		"flat":    words(700),
		"unicode": strings.Repeat("naïve café résumé déjà vu. ", 50),
	}
	params := []Params{
		{ChunkSize: 64, ChunkOverlap: 8, MinChunkSize: 16},
		{ChunkSize: 9, ChunkOverlap: 4, MinChunkSize: 3},
		{ChunkSize: 2, ChunkOverlap: 1, MinChunkSize: 0},
	}

	for cname, counter := range counters {
		for name, text := range texts {
			for _, p := range params {
				t.Run(fmt.Sprintf("%s/%s/%d-%d-%d", cname, name, p.ChunkSize, p.ChunkOverlap, p.MinChunkSize), func(t *testing.T) {
					c := mustNew(t, p, WithCounter(counter))
					chunks, err := c.Chunk(text, nil)
					require.NoError(t, err)

					for i, ch := range chunks {
						assert.Equal(t, counter(ch.Text), ch.TokenCount)
						assert.LessOrEqual(t, ch.TokenCount, p.ChunkSize, "chunk %d too large", i)
						assert.LessOrEqual(t, ch.OverlapTokens, p.ChunkOverlap, "chunk %d overlap too large", i)
					}
					assert.Equal(t, text, Reconstruct(chunks))
				})
			}
		}
	}
}

func TestChunk_PrefersSentenceBoundaries(t *testing.T) {
	c := mustNew(t, Params{ChunkSize: 12, ChunkOverlap: 0, MinChunkSize: 2}, WithLookback(6))
	text := sentence("a", 8) + " " + sentence("b", 8) + " " + sentence("c", 8)

	chunks, err := c.Chunk(text, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, sentence("a", 8), strings.TrimSpace(chunks[0].Text))
	assert.Equal(t, sentence("b", 8), strings.TrimSpace(chunks[1].Text))
	assert.Equal(t, sentence("c", 8), strings.TrimSpace(chunks[2].Text))
	assert.Equal(t, text, Reconstruct(chunks))
}

func TestChunk_PrefersParagraphOverSentence(t *testing.T) {
	c := mustNew(t, Params{ChunkSize: 10, ChunkOverlap: 0, MinChunkSize: 1}, WithLookback(6))
	text := "a b c. d e f\n\ng h i. j k l m n o"

	chunks, err := c.Chunk(text, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "a b c. d e f\n\n", chunks[0].Text)
	assert.Equal(t, "g h i. j k l m n o", chunks[1].Text)
}

func TestChunk_BoundaryOutsideLookbackIsIgnored(t *testing.T) {
	c := mustNew(t, Params{ChunkSize: 10, ChunkOverlap: 0, MinChunkSize: 1}, WithLookback(2))
	text := "a b c\n\nd e f g h i j k l m"

	chunks, err := c.Chunk(text, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 10, chunks[0].TokenCount)
	assert.Equal(t, text, Reconstruct(chunks))
}

func TestChunk_HardCutsOversizedWords(t *testing.T) {
	c := mustNew(t, Params{ChunkSize: 4, ChunkOverlap: 1, MinChunkSize: 0}, WithCounter(nonSpaceRunes))
	text := "abcdefghij"

	chunks, err := c.Chunk(text, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "abcd", chunks[0].Text)
	assert.Equal(t, "efgh", chunks[1].Text)
	assert.Equal(t, "ij", chunks[2].Text)
	assert.Equal(t, text, Reconstruct(chunks))
}

func TestChunk_MetadataIsCopiedPerChunk(t *testing.T) {
	c := mustNew(t, Params{ChunkSize: 10, ChunkOverlap: 2, MinChunkSize: 1})
	md := map[string]string{"document_id": "d1"}

	chunks, err := c.Chunk(words(30), md)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	chunks[0].Metadata["document_id"] = "changed"
	assert.Equal(t, "d1", chunks[1].Metadata["document_id"])
	assert.Equal(t, "d1", md["document_id"])
}

func TestChunk_NegativeCounterFails(t *testing.T) {
	c := mustNew(t, DefaultParams(), WithCounter(func(string) int { return -1 }))

	_, err := c.Chunk("some text", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrChunking)
	assert.ErrorIs(t, err, ErrNegativeCount)
}

func TestChunk_Invariants(t *testing.T) {
	texts := map[string]string{
		"prose":         prose(600),
		"flat":          words(777),
		"leading space": "  \n" + prose(150) + "\n",
		"unicode":       strings.Repeat("naïve café résumé — déjà vu. ", 60),
	}
	params := []Params{
		{ChunkSize: 50, ChunkOverlap: 10, MinChunkSize: 20},
		{ChunkSize: 100, ChunkOverlap: 0, MinChunkSize: 30},
		{ChunkSize: 64, ChunkOverlap: 63, MinChunkSize: 1},
		{ChunkSize: 7, ChunkOverlap: 3, MinChunkSize: 7},
		DefaultParams(),
	}

	for name, text := range texts {
		for _, p := range params {
			t.Run(fmt.Sprintf("%s/%d-%d-%d", name, p.ChunkSize, p.ChunkOverlap, p.MinChunkSize), func(t *testing.T) {
				c := mustNew(t, p)
				chunks, err := c.Chunk(text, nil)
				require.NoError(t, err)
				require.NotEmpty(t, chunks)

				for i, ch := range chunks {
					assert.Equal(t, i, ch.Index)
					assert.LessOrEqual(t, ch.TokenCount, p.ChunkSize, "chunk %d too large", i)
					assert.LessOrEqual(t, ch.OverlapTokens, p.ChunkOverlap, "chunk %d overlap too large", i)
					if i < len(chunks)-1 {
						assert.GreaterOrEqual(t, ch.TokenCount, p.MinChunkSize, "chunk %d too small", i)
					}
					assert.Equal(t, text[ch.Start:ch.End], ch.Text)
				}
				assert.Equal(t, text, Reconstruct(chunks))
			})
		}
	}
}

func TestMergeTail(t *testing.T) {
	c := mustNew(t, Params{ChunkSize: 10, ChunkOverlap: 0, MinChunkSize: 4})

	t.Run("merges when it fits", func(t *testing.T) {
		text := "a b c d e f g h"
		tt := &tokenizedText{text: text, counter: WordCounter}
		spans := []span{{start: 0, end: 12}, {start: 12, end: len(text)}}

		merged := c.mergeTail(tt, spans)
		require.Len(t, merged, 1)
		assert.Equal(t, span{start: 0, end: len(text)}, merged[0])
	})

	t.Run("keeps tail when merge would exceed size", func(t *testing.T) {
		text := words(12)
		tt := &tokenizedText{text: text, counter: WordCounter}
		cut := strings.Index(text, "w10")
		spans := []span{{start: 0, end: cut}, {start: cut, end: len(text)}}

		assert.Len(t, c.mergeTail(tt, spans), 2)
	})

	t.Run("keeps tail at minimum size", func(t *testing.T) {
		text := "a b c d e f g h"
		tt := &tokenizedText{text: text, counter: WordCounter}
		spans := []span{{start: 0, end: 8}, {start: 8, end: len(text)}}

		assert.Len(t, c.mergeTail(tt, spans), 2)
	})
}

func TestCounterByName(t *testing.T) {
	counter, err := CounterByName("words")
	require.NoError(t, err)
	assert.Equal(t, 3, counter("one two  three"))

	counter, err = CounterByName("")
	require.NoError(t, err)
	assert.Equal(t, 0, counter(""))
}
