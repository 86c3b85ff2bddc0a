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


package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/docproc/core"
	"github.com/poiesic/docproc/summarize"
)

// Extractor produces text from a source document.
type Extractor interface {
	Extract(ctx context.Context, doc *core.SourceDocument) (*core.ExtractedContent, error)
}

// Chunker splits normalized text into token-bounded chunks.
type Chunker interface {
	Chunk(text string, metadata map[string]string) ([]core.DocumentChunk, error)
}

// Summarizer produces a summary of a document.
type Summarizer interface {
	Summarize(ctx context.Context, req summarize.Request) (*core.Summary, error)
}

// RunOptions selects the stages of a run and their failure policy.
type RunOptions struct {
	// Chunk requests the chunking stage.
	Chunk bool
	// ChunkRequired makes chunking failures fatal.
	ChunkRequired bool
	// Summarize requests the summarization stage.
	Summarize bool
	// Strict makes summarization failures fatal.
	Strict bool
	// SummaryTargetWords overrides the summarizer's target when positive.
	SummaryTargetWords int
	// Metadata is merged into the result and copied onto every chunk.
	Metadata map[string]string
	// DocumentID replaces the content-derived document ID. Ignored by ProcessBatch.
	DocumentID string
}

// DefaultRunOptions extracts and chunks without summarizing.
func DefaultRunOptions() RunOptions {
	return RunOptions{Chunk: true}
}

// Pipeline orchestrates the processing of source documents.
type Pipeline struct {
	extractor  Extractor
	chunker    Chunker
	summarizer Summarizer
	pool       *ants.Pool
	progress   io.Writer
	interval   int
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunker sets the chunking stage.
func WithChunker(c Chunker) Option {
	return func(p *Pipeline) error {
		p.chunker = c
		return nil
	}
}

// WithSummarizer sets the summarization stage.
func WithSummarizer(s Summarizer) Option {
	return func(p *Pipeline) error {
		p.summarizer = s
		return nil
	}
}

// WithPoolSize sets the worker pool size for batch processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithProgress writes batch progress to w every interval documents.
func WithProgress(w io.Writer, interval int) Option {
	return func(p *Pipeline) error {
		if interval < 1 {
			interval = 1
		}
		p.progress = w
		p.interval = interval
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a pipeline around extractor.
func NewPipeline(extractor Extractor, opts ...Option) (*Pipeline, error) {
	if extractor == nil {
		return nil, core.ConfigurationError("pipeline", ErrExtractorRequired)
	}

	poolSize := max(1, runtime.NumCPU()/2)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		extractor: extractor,
		pool:      pool,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, core.ConfigurationError("pipeline", optErr)
		}
	}
	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// Process runs one document through the requested stages.
func (p *Pipeline) Process(ctx context.Context, src *core.SourceDocument, opts RunOptions) (*core.ProcessResult, error) {
	r := newRun()
	result, err := p.process(ctx, r, src, opts)
	if err != nil {
		r.fail()
		p.logger.Error("document failed", "file", filename(src), "state", r.history[len(r.history)-2], "err", err)
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) process(ctx context.Context, r *run, src *core.SourceDocument, opts RunOptions) (*core.ProcessResult, error) {
	start := time.Now()
	if err := r.to(StateExtracting); err != nil {
		return nil, err
	}
	content, err := p.extractor.Extract(ctx, src)
	if err != nil {
		if core.KindOf(err) == nil {
			err = core.ExtractionError(filename(src), err)
		}
		return nil, err
	}

	result := &core.ProcessResult{
		DocumentID: opts.DocumentID,
		Filename:   src.Filename(),
		Format:     content.Format,
		Text:       content.Text,
		Chunks:     []core.DocumentChunk{},
		UnitCount:  content.Structure.UnitCount,
		Structure:  content.Structure,
		Stages: map[core.Stage]core.StageOutcome{
			core.StageExtraction:    core.OutcomeSucceeded,
			core.StageChunking:      core.OutcomeSkipped,
			core.StageSummarization: core.OutcomeSkipped,
		},
	}
	if result.DocumentID == "" {
		result.DocumentID = core.IDFromContent(result.Filename + "\x00" + result.Text).String()
	}
	for _, w := range content.Warnings {
		result.Warnings = append(result.Warnings, core.Warning{Stage: core.StageExtraction, Message: w})
	}
	if len(content.Warnings) > 0 {
		result.Stages[core.StageExtraction] = core.OutcomeDegraded
	}

	if opts.Chunk {
		if err := r.to(StateChunking); err != nil {
			return nil, err
		}
		if err := p.chunk(result, opts); err != nil {
			return nil, err
		}
	}

	if opts.Summarize {
		if err := r.to(StateSummarizing); err != nil {
			return nil, err
		}
		if err := p.summarize(ctx, result, opts); err != nil {
			return nil, err
		}
	}

	if err := r.to(StateAssembling); err != nil {
		return nil, err
	}
	result.Metadata = assemble(content, result, opts.Metadata)
	if err := r.to(StateDone); err != nil {
		return nil, err
	}

	p.logger.Info("processed document",
		"file", result.Filename,
		"document_id", result.DocumentID,
		"chunks", len(result.Chunks),
		"summary", result.Summary != nil,
		"warnings", len(result.Warnings),
		"elapsed", time.Since(start))
	return result, nil
}

func (p *Pipeline) chunk(result *core.ProcessResult, opts RunOptions) error {
	var (
		chunks []core.DocumentChunk
		err    error
	)
	if p.chunker == nil {
		err = core.ChunkingError("", ErrChunkerRequired)
	} else {
		md := maps.Clone(opts.Metadata)
		if md == nil {
			md = make(map[string]string, 3)
		}
		md["document_id"] = result.DocumentID
		md["filename"] = result.Filename
		md["format"] = string(result.Format)
		chunks, err = p.chunker.Chunk(result.Text, md)
	}

	if err != nil {
		if core.KindOf(err) == nil {
			err = core.ChunkingError(result.Filename, err)
		}
		if opts.ChunkRequired {
			return err
		}
		p.logger.Warn("chunking degraded", "file", result.Filename, "err", err)
		result.Stages[core.StageChunking] = core.OutcomeDegraded
		result.Warnings = append(result.Warnings, core.Warning{Stage: core.StageChunking, Message: err.Error()})
		return nil
	}

	if chunks != nil {
		result.Chunks = chunks
	}
	result.Stages[core.StageChunking] = core.OutcomeSucceeded
	return nil
}

func (p *Pipeline) summarize(ctx context.Context, result *core.ProcessResult, opts RunOptions) error {
	var (
		summary *core.Summary
		err     error
	)
	if p.summarizer == nil {
		err = core.SummarizationError("", ErrSummarizerRequired)
	} else {
		summary, err = p.summarizer.Summarize(ctx, summarize.Request{
			Text:        result.Text,
			Chunks:      result.Chunks,
			Filename:    result.Filename,
			Strict:      opts.Strict,
			TargetWords: opts.SummaryTargetWords,
		})
	}

	if err != nil {
		if core.KindOf(err) == nil {
			err = core.SummarizationError(result.Filename, err)
		}
		if opts.Strict {
			return err
		}
		p.logger.Warn("summarization degraded", "file", result.Filename, "err", err)
		result.Stages[core.StageSummarization] = core.OutcomeDegraded
		result.Warnings = append(result.Warnings, core.Warning{Stage: core.StageSummarization, Message: err.Error()})
		return nil
	}

	result.Summary = summary
	result.Stages[core.StageSummarization] = core.OutcomeSucceeded
	if summary.Fallback {
		result.Stages[core.StageSummarization] = core.OutcomeDegraded
		if summary.Cause != "" {
			result.Warnings = append(result.Warnings, core.Warning{
				Stage:   core.StageSummarization,
				Message: "extractive fallback: " + summary.Cause,
			})
		}
	}
	return nil
}

// assemble merges extraction metadata, caller metadata and the stage record.
// Caller metadata overrides extraction keys; the pipeline's own keys are
// written last.
func assemble(content *core.ExtractedContent, result *core.ProcessResult, caller map[string]string) map[string]string {
	md := content.Metadata()
	maps.Copy(md, caller)

	md["document_id"] = result.DocumentID
	md["filename"] = result.Filename
	md["chunk_count"] = strconv.Itoa(len(result.Chunks))
	for _, stage := range []core.Stage{core.StageExtraction, core.StageChunking, core.StageSummarization} {
		md[string(stage)+"_status"] = string(result.Outcome(stage))
	}
	if s := result.Summary; s != nil {
		md["summary_method"] = string(s.Method)
		md["summary_fallback"] = strconv.FormatBool(s.Fallback)
		md["summary_target_words"] = strconv.Itoa(s.TargetWords)
	}
	if len(result.Warnings) > 0 {
		msgs := make([]string, len(result.Warnings))
		for i, w := range result.Warnings {
			msgs[i] = fmt.Sprintf("%s: %s", w.Stage, w.Message)
		}
		md["warnings"] = strings.Join(msgs, "; ")
	}
	return md
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

func filename(src *core.SourceDocument) string {
	if src == nil {
		return ""
	}
	return src.Filename()
}
