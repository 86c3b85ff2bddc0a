package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docproc/core"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.OCREnabled)
	assert.Equal(t, OCREngineTesseract, cfg.OCREngine)
	assert.Equal(t, 512, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 100, cfg.MinChunkSize)
	assert.Equal(t, 300.0, cfg.OCRDPI)
	assert.Equal(t, int64(100<<20), cfg.MaxFileSize)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.Empty(t, cfg.LLMHost)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		assert.Equal(t, DefaultConfig(), NewConfig())
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithOCR(false),
			WithChunking(256, 32, 64),
			WithTokenizer("cl100k_base"),
			WithSummaryTargetWords(80),
			WithTemperature(0.1),
			WithLLM("http://llm:8080", "gpt-4o-mini"),
			WithWorkers(3),
			WithBestEffortImages(true),
			WithMinPageChars(10),
			WithOCREngine("vision"),
		)

		assert.False(t, cfg.OCREnabled)
		assert.Equal(t, 256, cfg.ChunkSize)
		assert.Equal(t, 32, cfg.ChunkOverlap)
		assert.Equal(t, 64, cfg.MinChunkSize)
		assert.Equal(t, "cl100k_base", cfg.Tokenizer)
		assert.Equal(t, 80, cfg.SummaryTargetWords)
		assert.Equal(t, 0.1, cfg.LLMTemperature)
		assert.Equal(t, "http://llm:8080", cfg.LLMHost)
		assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
		assert.Equal(t, 3, cfg.Workers)
		assert.True(t, cfg.BestEffortImages)
		assert.Equal(t, 10, cfg.MinPageChars)
		assert.Equal(t, "vision", cfg.OCREngine)
	})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		wantHost string
	}{
		{name: "adds v1", host: "http://localhost:11434", wantHost: "http://localhost:11434/v1"},
		{name: "trailing slash", host: "http://localhost:11434/", wantHost: "http://localhost:11434/v1"},
		{name: "already normalized", host: "http://localhost:11434/v1", wantHost: "http://localhost:11434/v1"},
		{name: "empty stays empty", host: "", wantHost: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(WithLLM(tt.host, "m"))
			cfg.Normalize()
			assert.Equal(t, tt.wantHost, cfg.LLMHost)
		})
	}

	t.Run("disabled ocr forces engine none", func(t *testing.T) {
		cfg := NewConfig(WithOCR(false))
		cfg.Normalize()
		assert.Equal(t, OCREngineNone, cfg.OCREngine)
	})

	t.Run("fills blanks", func(t *testing.T) {
		cfg := NewConfig(WithOCREngine(" Tesseract "), WithTokenizer(""))
		cfg.OCRLanguage = ""
		cfg.Normalize()
		assert.Equal(t, OCREngineTesseract, cfg.OCREngine)
		assert.Equal(t, "eng", cfg.OCRLanguage)
		assert.Equal(t, "words", cfg.Tokenizer)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ConfigOption
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid"},
		{name: "overlap equals size", opts: []ConfigOption{WithChunking(100, 100, 10)}, wantErr: "chunk_overlap must be less than chunk_size"},
		{name: "min above size", opts: []ConfigOption{WithChunking(100, 10, 101)}, wantErr: "min_chunk_size"},
		{name: "zero size", opts: []ConfigOption{WithChunking(0, 0, 0)}, wantErr: "chunk_size must be positive"},
		{name: "temperature above one", opts: []ConfigOption{WithTemperature(1.5)}, wantErr: "llm_temperature"},
		{name: "negative temperature", opts: []ConfigOption{WithTemperature(-0.1)}, wantErr: "llm_temperature"},
		{name: "zero target words", opts: []ConfigOption{WithSummaryTargetWords(0)}, wantErr: "summary_target_words"},
		{name: "zero workers", opts: []ConfigOption{WithWorkers(0)}, wantErr: "workers must be positive"},
		{name: "unknown engine", opts: []ConfigOption{WithOCREngine("abbyy")}, wantErr: "unknown ocr_engine"},
		{name: "vision without host", opts: []ConfigOption{WithOCREngine(OCREngineVision)}, wantErr: "requires llm_host"},
		{
			name:   "vision with host and model",
			opts:   []ConfigOption{WithOCREngine(OCREngineVision), WithLLM("http://x", "m")},
			mutate: func(c *Config) { c.OCRVisionModel = "llava" },
		},
		{name: "host without model", opts: []ConfigOption{WithLLM("http://x", "")}, wantErr: "llm_model is required"},
		{name: "zero weights", mutate: func(c *Config) { c.PositionWeight, c.FrequencyWeight = 0, 0 }, wantErr: "salience weight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(tt.opts...)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("overrides defaults", func(t *testing.T) {
		path := filepath.Join(dir, "docproc.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
ocr_enabled: false
chunk_size: 256
chunk_overlap: 20
min_chunk_size: 40
summary_target_words: 60
llm_temperature: 0.2
llm_timeout: 90s
llm_host: http://localhost:11434
`), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.False(t, cfg.OCREnabled)
		assert.Equal(t, OCREngineNone, cfg.OCREngine)
		assert.Equal(t, 256, cfg.ChunkSize)
		assert.Equal(t, 20, cfg.ChunkOverlap)
		assert.Equal(t, 40, cfg.MinChunkSize)
		assert.Equal(t, 60, cfg.SummaryTargetWords)
		assert.Equal(t, 0.2, cfg.LLMTemperature)
		assert.Equal(t, 90*time.Second, cfg.LLMTimeout)
		assert.Equal(t, "http://localhost:11434/v1", cfg.LLMHost)
		assert.Equal(t, 300.0, cfg.OCRDPI, "unset keys keep defaults")
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("chunk_size: 10\nchunk_overlap: 10\n"), 0o644))

		_, err := Load(path)
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("chunk_size: [1, 2"), 0o644))

		_, err := Load(path)
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
