package docproc

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/docproc/config"
	"github.com/poiesic/docproc/core"
	"github.com/poiesic/docproc/llm"
	"github.com/poiesic/docproc/llm/mock"
	"github.com/poiesic/docproc/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(t *testing.T, cfg *config.Config, opts ...Option) *Processor {
	t.Helper()
	p, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func sampleText(sentences int) string {
	var b strings.Builder
	for i := range sentences {
		b.WriteString("Sentence number ")
		b.WriteString(strings.Repeat("x", i%7+1))
		b.WriteString(" talks about document processing. ")
	}
	return b.String()
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p := newTestProcessor(t, nil)
		assert.NotNil(t, p.Config())
		assert.False(t, p.HasLLM())
		assert.Equal(t, llm.Usage{}, p.Usage())
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := config.NewConfig(config.WithChunking(100, 200, 10))
		_, err := New(cfg)
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})

	t.Run("unknown tokenizer", func(t *testing.T) {
		cfg := config.NewConfig(config.WithTokenizer("no-such-encoding"))
		_, err := New(cfg)
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})
}

func TestProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleText(200)), 0o644))

	client := mock.NewMockCompleter()
	cfg := config.NewConfig(config.WithOCR(false), config.WithChunking(100, 10, 20))
	p := newTestProcessor(t, cfg, WithLLMClient(client))
	require.True(t, p.HasLLM())

	opts := pipeline.DefaultRunOptions()
	opts.Summarize = true
	result, err := p.ProcessFile(context.Background(), path, opts)
	require.NoError(t, err)

	assert.Equal(t, "notes.txt", result.Filename)
	assert.Equal(t, core.FormatText, result.Format)
	assert.Greater(t, len(result.Chunks), 1)
	require.NotNil(t, result.Summary)
	assert.Equal(t, core.SummaryMethodLLM, result.Summary.Method)
	assert.Equal(t, core.OutcomeSucceeded, result.Outcome(core.StageSummarization))

	usage := p.Usage()
	assert.Equal(t, client.CallCount(), usage.Calls)
	assert.Greater(t, usage.PromptTokens, 0)
}

func TestSummarize_ResponseCache(t *testing.T) {
	client := mock.NewMockCompleter()
	p := newTestProcessor(t, config.NewConfig(config.WithOCR(false)),
		WithLLMClient(client), WithResponseCache(8))

	text := sampleText(40)
	first, err := p.Summarize(context.Background(), text, 20)
	require.NoError(t, err)
	second, err := p.Summarize(context.Background(), text, 20)
	require.NoError(t, err)

	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 1, client.CallCount())
}

func TestSummarize_FallsBackWithoutClient(t *testing.T) {
	p := newTestProcessor(t, config.NewConfig(config.WithOCR(false)))

	summary, err := p.Summarize(context.Background(), sampleText(80), 30)
	require.NoError(t, err)
	assert.True(t, summary.Fallback)
	assert.Equal(t, core.SummaryMethodExtractive, summary.Method)
}

func TestSummarize_ClientFailureFallsBack(t *testing.T) {
	client := mock.NewMockCompleterWithFunc(func(context.Context, []llm.Message, float64) (string, error) {
		return "", errors.New("boom")
	})
	cfg := config.NewConfig(config.WithOCR(false))
	cfg.LLMMaxAttempts = 1
	p := newTestProcessor(t, cfg, WithLLMClient(client))

	summary, err := p.Summarize(context.Background(), sampleText(80), 30)
	require.NoError(t, err)
	assert.True(t, summary.Fallback)
	assert.NotEmpty(t, summary.Cause)
	assert.Equal(t, 1, p.Usage().Failures)
}

func TestExtractAndChunkText(t *testing.T) {
	p := newTestProcessor(t, config.NewConfig(config.WithOCR(false), config.WithChunking(50, 5, 10)))
	ctx := context.Background()

	content, err := p.ExtractText(ctx, core.NewSourceBytes("readme.md", []byte("# Title\r\n\r\nBody text.")))
	require.NoError(t, err)
	assert.Equal(t, core.FormatMarkdown, content.Format)
	assert.Equal(t, "# Title\n\nBody text.", content.Text)

	chunks, err := p.ChunkText(sampleText(60), map[string]string{"source": "test"})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "test", chunks[0].Metadata["source"])
}

func TestProcessBatch(t *testing.T) {
	p := newTestProcessor(t, config.NewConfig(config.WithOCR(false), config.WithWorkers(2)))

	docs := []*core.SourceDocument{
		core.NewSourceBytes("a.txt", []byte(sampleText(10))),
		core.NewSourceBytes("b.xyz", []byte("unsupported")),
		core.NewSourceBytes("c.md", []byte(sampleText(5))),
	}
	results := p.ProcessBatch(context.Background(), docs, pipeline.DefaultRunOptions())
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, core.ErrUnsupportedFormat)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "c.md", results[2].Result.Filename)
}

func TestImageWithoutOCREngine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))

	cfg := config.NewConfig(config.WithOCREngine(config.OCREngineNone))
	p := newTestProcessor(t, cfg)

	_, err := p.ExtractText(context.Background(), core.NewSourceBytes("scan.png", buf.Bytes()))
	assert.ErrorIs(t, err, core.ErrOCRUnavailable)
	assert.ErrorIs(t, err, core.ErrExtraction)
}

func TestSupportedExtensions(t *testing.T) {
	p := newTestProcessor(t, config.NewConfig(config.WithOCR(false)))
	exts := p.SupportedExtensions()
	assert.Contains(t, exts[core.FormatPDF], ".pdf")
	assert.Contains(t, exts[core.FormatImage], ".png")
	assert.Len(t, exts, len(core.Formats))
}
