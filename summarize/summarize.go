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


package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/docproc/core"
	"github.com/poiesic/docproc/llm"
	"github.com/poiesic/docproc/retry"
)

// Request is one summarization job.
type Request struct {
	// Text is the normalized document text. When empty, the bodies of
	// Chunks are joined instead.
	Text     string
	Chunks   []core.DocumentChunk
	Filename string
	// Strict turns LLM failures into errors instead of extractive fallbacks.
	Strict bool
	// TargetWords overrides Config.TargetWords when positive.
	TargetWords int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMapConcurrency bounds parallel map calls. Values below 1 are ignored.
func WithMapConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.mapConcurrency = n
		}
	}
}

// Engine produces summaries with an optional LLM client.
type Engine struct {
	cfg            Config
	client         llm.Completer
	policy         retry.Policy
	mapConcurrency int
	logger         *slog.Logger
}

// New creates an Engine. A nil client always yields extractive summaries.
func New(cfg Config, client llm.Completer, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, core.ConfigurationError("summarizer", fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	e := &Engine{
		cfg:            cfg,
		client:         client,
		mapConcurrency: 1,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "summarizer")
	e.policy = retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.RetryDelay,
		MaxDelay:    cfg.MaxRetryDelay,
		Retryable:   retry.IsTransient,
		Logger:      e.logger,
	}
	return e, nil
}

// HasClient reports whether an LLM client is configured.
func (e *Engine) HasClient() bool {
	return e.client != nil
}

// Summarize returns a summary of req. Without a client, or when the client
// fails and req.Strict is false, the summary is extractive and flagged as a
// fallback with the client failure recorded in Cause.
func (e *Engine) Summarize(ctx context.Context, req Request) (*core.Summary, error) {
	target := req.TargetWords
	if target <= 0 {
		target = e.cfg.TargetWords
	}

	text := strings.TrimSpace(req.Text)
	if text == "" && len(req.Chunks) > 0 {
		text = strings.TrimSpace(joinBodies(req.Chunks))
	}
	if text == "" {
		return &core.Summary{TargetWords: target, Fallback: true, Method: core.SummaryMethodExtractive}, nil
	}

	if e.client == nil {
		return e.extractive(text, target), nil
	}

	start := time.Now()
	out, err := e.abstractive(ctx, req, text, target)
	if err == nil {
		e.logger.Debug("summarized document", "file", req.Filename, "words", len(strings.Fields(out)), "elapsed", time.Since(start))
		return &core.Summary{Text: out, TargetWords: target, Method: core.SummaryMethodLLM}, nil
	}

	if req.Strict || errors.Is(err, context.Canceled) {
		return nil, core.SummarizationError(fmt.Sprintf("summarizing %s", req.Filename), err)
	}
	e.logger.Warn("llm summarization failed, using extractive summary", "file", req.Filename, "err", err)
	s := e.extractive(text, target)
	s.Cause = err.Error()
	return s, nil
}

func (e *Engine) abstractive(ctx context.Context, req Request, text string, target int) (string, error) {
	if len(strings.Fields(text)) <= e.cfg.MapReduceThresholdWords {
		return e.complete(ctx, singlePrompt(text, req.Filename, target))
	}

	groups := e.groups(req.Chunks, text)
	if len(groups) == 0 {
		return "", ErrNoContent
	}
	e.logger.Debug("map-reduce summarization", "file", req.Filename, "groups", len(groups))

	partials := make([]string, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.mapConcurrency)
	for i, group := range groups {
		g.Go(func() error {
			out, err := e.complete(gctx, mapPrompt(group, req.Filename, i+1, len(groups), target))
			if err != nil {
				return fmt.Errorf("part %d of %d: %w", i+1, len(groups), err)
			}
			partials[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	if len(partials) == 1 {
		return partials[0], nil
	}
	return e.complete(ctx, reducePrompt(partials, req.Filename, target))
}

// groups splits the document into map inputs of at most MapReduceGroupWords
// words, keeping chunk boundaries when chunks are available. A single chunk
// larger than the group size forms its own group.
func (e *Engine) groups(chunks []core.DocumentChunk, text string) []string {
	limit := e.cfg.MapReduceGroupWords
	var (
		out   []string
		cur   []string
		words int
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
		}
		cur, words = nil, 0
	}

	if len(chunks) > 0 {
		for _, c := range chunks {
			body := strings.TrimSpace(c.Body())
			n := len(strings.Fields(body))
			if n == 0 {
				continue
			}
			if words > 0 && words+n > limit {
				flush()
			}
			cur = append(cur, body)
			words += n
		}
		flush()
		return out
	}

	for _, w := range strings.Fields(text) {
		cur = append(cur, w)
		words++
		if words >= limit {
			flush()
		}
	}
	flush()
	return out
}

// complete calls the client under the retry policy with a per-call timeout.
func (e *Engine) complete(ctx context.Context, messages []llm.Message) (string, error) {
	var out string
	err := retry.WithBackoff(ctx, e.policy, func(ctx context.Context) error {
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if e.cfg.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		}
		defer cancel()

		reply, err := e.client.Complete(callCtx, messages, e.cfg.Temperature)
		if err != nil {
			if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				return retry.Transient(fmt.Errorf("llm call exceeded %s: %w", e.cfg.Timeout, err))
			}
			return err
		}
		reply = strings.TrimSpace(reply)
		if reply == "" {
			return core.ErrEmptyResponse
		}
		out = reply
		return nil
	})
	return out, err
}

func joinBodies(chunks []core.DocumentChunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Body())
	}
	return b.String()
}
