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


package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/docproc/core"
)

// OCR engine names.
const (
	OCREngineTesseract = "tesseract"
	OCREngineVision    = "vision"
	OCREngineNone      = "none"
)

// Config holds every tunable of a processing run. Build it once, validate
// it, and hand it to the processor; nothing mutates it afterwards.
type Config struct {
	// OCREnabled routes scan-like PDF pages and images through OCR.
	OCREnabled bool `yaml:"ocr_enabled"`

	// OCREngine selects the OCR backend: "tesseract", "vision" or "none".
	OCREngine string `yaml:"ocr_engine"`

	// OCRLanguage is the recognition language passed to the engine.
	// Default: "eng"
	OCRLanguage string `yaml:"ocr_language"`

	// OCRDPI is the rendering resolution for scan-like pages.
	// Default: 300
	OCRDPI float64 `yaml:"ocr_dpi"`

	// OCRTimeout bounds a single OCR engine call.
	OCRTimeout time.Duration `yaml:"ocr_timeout"`

	// OCRMaxAttempts bounds retries of a single OCR call.
	OCRMaxAttempts int `yaml:"ocr_max_attempts"`

	// OCRWorkers bounds how many pages of one PDF are recognized at once.
	OCRWorkers int `yaml:"ocr_workers"`

	// OCRVisionModel is the multimodal model used by the "vision" engine.
	OCRVisionModel string `yaml:"ocr_vision_model"`

	// BestEffortImages returns empty text with a warning instead of failing
	// when an image cannot be recognized.
	BestEffortImages bool `yaml:"best_effort_images"`

	// MinPageChars is the minimum non-space characters for a PDF page's
	// text layer to be trusted.
	// Default: 50
	MinPageChars int `yaml:"min_page_chars"`

	// MinCharsPerSquareInch is the minimum text density of a PDF page.
	// Zero disables the density check.
	MinCharsPerSquareInch float64 `yaml:"min_chars_per_square_inch"`

	// MaxFileSize rejects larger sources. Default: 100 MiB
	MaxFileSize int64 `yaml:"max_file_size"`

	// ChunkSize, ChunkOverlap and MinChunkSize are token counts.
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	MinChunkSize int `yaml:"min_chunk_size"`

	// Tokenizer selects the token counter: "words" or a tiktoken encoding
	// such as "cl100k_base".
	Tokenizer string `yaml:"tokenizer"`

	// SummaryTargetWords is the desired summary length.
	SummaryTargetWords int `yaml:"summary_target_words"`

	// LLMTemperature is the sampling temperature in [0, 1].
	LLMTemperature float64 `yaml:"llm_temperature"`

	LLMTimeout       time.Duration `yaml:"llm_timeout"`
	LLMMaxAttempts   int           `yaml:"llm_max_attempts"`
	LLMRetryDelay    time.Duration `yaml:"llm_retry_delay"`
	LLMMaxRetryDelay time.Duration `yaml:"llm_max_retry_delay"`

	// MapReduceThresholdWords switches summarization to map-reduce for
	// longer texts; MapReduceGroupWords bounds each mapped group.
	MapReduceThresholdWords int `yaml:"map_reduce_threshold_words"`
	MapReduceGroupWords     int `yaml:"map_reduce_group_words"`

	// Salience weights of the extractive summarizer.
	PositionWeight  float64 `yaml:"position_weight"`
	FrequencyWeight float64 `yaml:"frequency_weight"`

	// LLMHost is the base URL of an OpenAI-compatible API. Empty disables
	// the built-in client; summaries are then extractive unless a client is
	// supplied programmatically.
	LLMHost  string `yaml:"llm_host"`
	LLMModel string `yaml:"llm_model"`
	LLMToken string `yaml:"llm_token"`

	// Workers bounds concurrent documents in batch runs.
	Workers int `yaml:"workers"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithOCR enables or disables OCR.
func WithOCR(enabled bool) ConfigOption {
	return func(c *Config) {
		c.OCREnabled = enabled
	}
}

// WithOCREngine selects the OCR backend.
func WithOCREngine(engine string) ConfigOption {
	return func(c *Config) {
		c.OCREngine = engine
	}
}

// WithChunking sets the chunking parameters.
func WithChunking(size, overlap, minSize int) ConfigOption {
	return func(c *Config) {
		c.ChunkSize = size
		c.ChunkOverlap = overlap
		c.MinChunkSize = minSize
	}
}

// WithTokenizer sets the token counter name.
func WithTokenizer(name string) ConfigOption {
	return func(c *Config) {
		c.Tokenizer = name
	}
}

// WithSummaryTargetWords sets the desired summary length.
func WithSummaryTargetWords(words int) ConfigOption {
	return func(c *Config) {
		c.SummaryTargetWords = words
	}
}

// WithTemperature sets the LLM sampling temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.LLMTemperature = t
	}
}

// WithLLM sets the host and model of the built-in OpenAI-compatible client.
func WithLLM(host, model string) ConfigOption {
	return func(c *Config) {
		c.LLMHost = host
		c.LLMModel = model
	}
}

// WithWorkers sets the batch worker count.
func WithWorkers(n int) ConfigOption {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithBestEffortImages toggles the best-effort image policy.
func WithBestEffortImages(enabled bool) ConfigOption {
	return func(c *Config) {
		c.BestEffortImages = enabled
	}
}

// WithMinPageChars sets the PDF text-layer sufficiency threshold.
func WithMinPageChars(n int) ConfigOption {
	return func(c *Config) {
		c.MinPageChars = n
	}
}

// DefaultConfig returns a Config with defaults suited to local processing.
func DefaultConfig() *Config {
	return &Config{
		OCREnabled:              true,
		OCREngine:               OCREngineTesseract,
		OCRLanguage:             "eng",
		OCRDPI:                  300,
		OCRTimeout:              60 * time.Second,
		OCRMaxAttempts:          2,
		OCRWorkers:              4,
		MinPageChars:            50,
		MaxFileSize:             100 << 20,
		ChunkSize:               512,
		ChunkOverlap:            50,
		MinChunkSize:            100,
		Tokenizer:               "words",
		SummaryTargetWords:      150,
		LLMTemperature:          0.3,
		LLMTimeout:              60 * time.Second,
		LLMMaxAttempts:          3,
		LLMRetryDelay:           time.Second,
		LLMMaxRetryDelay:        30 * time.Second,
		MapReduceThresholdWords: 3000,
		MapReduceGroupWords:     1500,
		PositionWeight:          1.0,
		FrequencyWeight:         1.0,
		LLMModel:                "qwen2.5:3b",
		LLMToken:                "none",
		Workers:                 max(1, runtime.NumCPU()/2),
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithChunking(256, 32, 64),
//	    WithLLM("http://localhost:11434/v1", "qwen2.5:3b"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.ConfigurationError("reading "+path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, core.ConfigurationError("parsing "+path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to LLMHost if missing, which is required by most
// OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.LLMHost != "" && !strings.HasSuffix(c.LLMHost, "/v1") {
		c.LLMHost = strings.TrimSuffix(c.LLMHost, "/") + "/v1"
	}
	c.OCREngine = strings.ToLower(strings.TrimSpace(c.OCREngine))
	if c.OCREngine == "" {
		c.OCREngine = OCREngineTesseract
	}
	if !c.OCREnabled {
		c.OCREngine = OCREngineNone
	}
	if c.OCRLanguage == "" {
		c.OCRLanguage = "eng"
	}
	c.Tokenizer = strings.TrimSpace(c.Tokenizer)
	if c.Tokenizer == "" {
		c.Tokenizer = "words"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.ChunkSize > 0, "chunk_size must be positive")
	check(c.ChunkOverlap >= 0, "chunk_overlap must not be negative")
	check(c.ChunkOverlap < c.ChunkSize, "chunk_overlap must be less than chunk_size")
	check(c.MinChunkSize >= 0 && c.MinChunkSize <= c.ChunkSize, "min_chunk_size must be between 0 and chunk_size")
	check(c.SummaryTargetWords > 0, "summary_target_words must be positive")
	check(c.LLMTemperature >= 0 && c.LLMTemperature <= 1, "llm_temperature must be between 0 and 1")
	check(c.LLMTimeout >= 0, "llm_timeout must not be negative")
	check(c.LLMMaxAttempts > 0, "llm_max_attempts must be positive")
	check(c.LLMRetryDelay >= 0, "llm_retry_delay must not be negative")
	check(c.MapReduceThresholdWords > 0, "map_reduce_threshold_words must be positive")
	check(c.MapReduceGroupWords > 0, "map_reduce_group_words must be positive")
	check(c.PositionWeight >= 0 && c.FrequencyWeight >= 0, "salience weights must not be negative")
	check(c.PositionWeight+c.FrequencyWeight > 0, "at least one salience weight must be positive")
	check(c.OCRDPI > 0, "ocr_dpi must be positive")
	check(c.OCRTimeout >= 0, "ocr_timeout must not be negative")
	check(c.OCRMaxAttempts > 0, "ocr_max_attempts must be positive")
	check(c.OCRWorkers > 0, "ocr_workers must be positive")
	check(c.MinPageChars >= 0, "min_page_chars must not be negative")
	check(c.MinCharsPerSquareInch >= 0, "min_chars_per_square_inch must not be negative")
	check(c.MaxFileSize > 0, "max_file_size must be positive")
	check(c.Workers > 0, "workers must be positive")

	switch c.OCREngine {
	case OCREngineTesseract, OCREngineNone:
	case OCREngineVision:
		check(c.LLMHost != "", "ocr_engine vision requires llm_host")
		check(c.OCRVisionModel != "", "ocr_engine vision requires ocr_vision_model")
	default:
		check(false, "unknown ocr_engine %q", c.OCREngine)
	}
	if c.LLMHost != "" {
		check(c.LLMModel != "", "llm_model is required when llm_host is set")
	}

	if len(errs) > 0 {
		return core.ConfigurationError("", errors.Join(errs...))
	}
	return nil
}
