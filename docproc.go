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


// Package docproc turns heterogeneous documents into normalized text,
// token-bounded chunks and summaries.
//
// Processor wires the extraction, OCR, chunking and summarization stages
// from a config.Config:
//
//	p, err := docproc.New(config.NewConfig(config.WithOCR(false)))
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//	result, err := p.ProcessFile(ctx, "report.pdf", pipeline.DefaultRunOptions())
package docproc

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/docproc/chunk"
	"github.com/poiesic/docproc/config"
	"github.com/poiesic/docproc/core"
	"github.com/poiesic/docproc/extract"
	"github.com/poiesic/docproc/llm"
	"github.com/poiesic/docproc/llm/openai"
	"github.com/poiesic/docproc/ocr"
	"github.com/poiesic/docproc/ocr/mupdf"
	"github.com/poiesic/docproc/pipeline"
	"github.com/poiesic/docproc/summarize"
)

const ocrRetryDelay = 500 * time.Millisecond

// Processor runs documents through the full pipeline.
type Processor struct {
	cfg        *config.Config
	extractor  *extract.Engine
	chunker    *chunk.Chunker
	summarizer *summarize.Engine
	pipeline   *pipeline.Pipeline
	usage      *llm.UsageCounter
	logger     *slog.Logger
}

// Option configures a Processor.
type Option func(*options)

type options struct {
	client    llm.Completer
	ocrEngine ocr.Engine
	renderer  ocr.Renderer
	cacheSize int
	progress  io.Writer
	logger    *slog.Logger
}

// WithLLMClient supplies the summarization client instead of building one
// from config.
func WithLLMClient(c llm.Completer) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithOCREngine supplies the OCR engine instead of the one named in config.
func WithOCREngine(e ocr.Engine) Option {
	return func(o *options) {
		o.ocrEngine = e
	}
}

// WithRenderer replaces the MuPDF page renderer.
func WithRenderer(r ocr.Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

// WithResponseCache caches up to size LLM replies.
func WithResponseCache(size int) Option {
	return func(o *options) {
		o.cacheSize = size
	}
}

// WithProgress reports batch progress to w.
func WithProgress(w io.Writer) Option {
	return func(o *options) {
		o.progress = w
	}
}

// WithLogger sets the logger passed to every stage.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New builds a Processor. A nil cfg uses config.DefaultConfig.
func New(cfg *config.Config, opts ...Option) (*Processor, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger

	counter, err := chunk.CounterByName(cfg.Tokenizer)
	if err != nil {
		return nil, core.ConfigurationError("tokenizer", err)
	}
	chunker, err := chunk.New(chunk.Params{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		MinChunkSize: cfg.MinChunkSize,
	}, chunk.WithCounter(counter), chunk.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	extractor, err := newExtractor(cfg, o)
	if err != nil {
		return nil, err
	}

	client, usage, err := newClient(cfg, o, counter)
	if err != nil {
		return nil, err
	}
	summarizer, err := summarize.New(summarize.FromConfig(cfg), client,
		summarize.WithMapConcurrency(cfg.Workers),
		summarize.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithChunker(chunker),
		pipeline.WithSummarizer(summarizer),
		pipeline.WithPoolSize(cfg.Workers),
		pipeline.WithLogger(logger),
	}
	if o.progress != nil {
		pipeOpts = append(pipeOpts, pipeline.WithProgress(o.progress, 1))
	}
	pipe, err := pipeline.NewPipeline(extractor, pipeOpts...)
	if err != nil {
		return nil, err
	}

	return &Processor{
		cfg:        cfg,
		extractor:  extractor,
		chunker:    chunker,
		summarizer: summarizer,
		pipeline:   pipe,
		usage:      usage,
		logger:     logger.With("component", "processor"),
	}, nil
}

func newExtractor(cfg *config.Config, o *options) (*extract.Engine, error) {
	opts := []extract.Option{
		extract.WithOCRWorkers(cfg.OCRWorkers),
		extract.WithPageThresholds(cfg.MinPageChars, cfg.MinCharsPerSquareInch),
		extract.WithMaxFileSize(cfg.MaxFileSize),
		extract.WithBestEffortImages(cfg.BestEffortImages),
		extract.WithLogger(o.logger),
	}
	if !cfg.OCREnabled {
		return extract.New(append(opts, extract.WithoutOCR())...)
	}

	engine := o.ocrEngine
	if engine == nil {
		var err error
		if engine, err = newOCREngine(cfg, o.logger); err != nil {
			return nil, err
		}
	}
	renderer := o.renderer
	if renderer == nil {
		renderer = mupdf.NewRenderer()
	}
	fallback, err := ocr.NewFallback(engine,
		ocr.WithRenderer(renderer),
		ocr.WithLanguage(cfg.OCRLanguage),
		ocr.WithDPI(cfg.OCRDPI),
		ocr.WithTimeout(cfg.OCRTimeout),
		ocr.WithRetry(cfg.OCRMaxAttempts, ocrRetryDelay),
		ocr.WithLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}
	return extract.New(append(opts, extract.WithOCR(fallback))...)
}

// newOCREngine returns nil for the "none" engine; OCR requests then fail
// with core.ErrOCRUnavailable.
func newOCREngine(cfg *config.Config, logger *slog.Logger) (ocr.Engine, error) {
	switch cfg.OCREngine {
	case config.OCREngineTesseract:
		return ocr.NewTesseractEngine(ocr.WithTesseractLogger(logger)), nil
	case config.OCREngineVision:
		engine, err := ocr.NewOpenAIVisionEngine(cfg.LLMHost, cfg.OCRVisionModel, cfg.LLMToken)
		if err != nil {
			return nil, core.ConfigurationError("vision ocr", err)
		}
		return engine, nil
	default:
		return nil, nil
	}
}

func newClient(cfg *config.Config, o *options, counter chunk.Counter) (llm.Completer, *llm.UsageCounter, error) {
	client := o.client
	if client == nil && cfg.LLMHost != "" {
		var err error
		if client, err = openai.NewCompleter(cfg); err != nil {
			return nil, nil, err
		}
	}
	if client == nil {
		return nil, nil, nil
	}
	if o.cacheSize > 0 {
		cached, err := llm.NewCaching(client, o.cacheSize)
		if err != nil {
			return nil, nil, core.ConfigurationError("response cache", err)
		}
		client = cached
	}
	usage, err := llm.NewUsageCounter(client, counter)
	if err != nil {
		return nil, nil, err
	}
	return usage, usage, nil
}

// Config returns the validated configuration.
func (p *Processor) Config() *config.Config {
	return p.cfg
}

// Process runs one document through the stages selected by opts.
func (p *Processor) Process(ctx context.Context, src *core.SourceDocument, opts pipeline.RunOptions) (*core.ProcessResult, error) {
	return p.pipeline.Process(ctx, src, opts)
}

// ProcessFile processes the document at path.
func (p *Processor) ProcessFile(ctx context.Context, path string, opts pipeline.RunOptions) (*core.ProcessResult, error) {
	return p.Process(ctx, core.NewSourceFile(path), opts)
}

// ProcessBatch processes docs concurrently. Results are in input order and
// one failure does not stop the others.
func (p *Processor) ProcessBatch(ctx context.Context, docs []*core.SourceDocument, opts pipeline.RunOptions) []pipeline.BatchResult {
	return p.pipeline.ProcessBatch(ctx, docs, opts)
}

// ExtractText runs only the extraction stage.
func (p *Processor) ExtractText(ctx context.Context, src *core.SourceDocument) (*core.ExtractedContent, error) {
	return p.extractor.Extract(ctx, src)
}

// ChunkText splits already normalized text.
func (p *Processor) ChunkText(text string, metadata map[string]string) ([]core.DocumentChunk, error) {
	return p.chunker.Chunk(text, metadata)
}

// Summarize summarizes text. targetWords overrides the configured length
// when positive.
func (p *Processor) Summarize(ctx context.Context, text string, targetWords int) (*core.Summary, error) {
	return p.summarizer.Summarize(ctx, summarize.Request{Text: text, TargetWords: targetWords})
}

// HasLLM reports whether summaries can be abstractive.
func (p *Processor) HasLLM() bool {
	return p.summarizer.HasClient()
}

// Usage returns the LLM traffic seen so far. It is zero without a client.
func (p *Processor) Usage() llm.Usage {
	if p.usage == nil {
		return llm.Usage{}
	}
	return p.usage.Usage()
}

// SupportedExtensions returns the file extensions accepted for each format.
func (p *Processor) SupportedExtensions() map[core.Format][]string {
	out := make(map[core.Format][]string)
	for _, f := range core.Formats {
		out[f] = extract.Extensions(f)
	}
	return out
}

// Close releases the batch worker pool.
func (p *Processor) Close() error {
	p.pipeline.Release()
	return nil
}
