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


package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/docproc/core"
	"github.com/poiesic/docproc/retry"
)

// DefaultDPI is the rendering resolution used unless overridden.
const DefaultDPI = 300

// DefaultLanguage is the recognition language used unless overridden.
const DefaultLanguage = "eng"

var (
	// ErrNoRenderer is returned when a page must be rasterized but no Renderer is set.
	ErrNoRenderer = errors.New("no page renderer configured")

	// ErrInvalidPage is returned for page numbers outside the document.
	ErrInvalidPage = errors.New("page out of range")
)

// Engine recognizes text in a raster.
// Implementations must be thread-safe for concurrent use.
type Engine interface {
	// Recognize returns the text found in img using the given language.
	Recognize(ctx context.Context, img image.Image, language string) (string, error)

	// Available reports an error wrapping core.ErrOCRUnavailable when the
	// engine cannot run in this environment.
	Available() error
}

// Renderer rasterizes a page of a document held in memory.
// Implementations must be thread-safe for concurrent use.
type Renderer interface {
	// RenderPage renders the 1-based page at dpi.
	RenderPage(ctx context.Context, data []byte, page int, dpi float64) (image.Image, error)
}

// Option configures a Fallback.
type Option func(*Fallback) error

// WithRenderer sets the page renderer used by RecognizePage.
func WithRenderer(r Renderer) Option {
	return func(f *Fallback) error {
		f.renderer = r
		return nil
	}
}

// WithLanguage sets the recognition language.
func WithLanguage(lang string) Option {
	return func(f *Fallback) error {
		if lang == "" {
			return errors.New("language must not be empty")
		}
		f.language = lang
		return nil
	}
}

// WithDPI overrides DefaultDPI.
func WithDPI(dpi float64) Option {
	return func(f *Fallback) error {
		if dpi <= 0 {
			return fmt.Errorf("dpi must be positive, got %v", dpi)
		}
		f.dpi = dpi
		return nil
	}
}

// WithTimeout bounds each engine call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(f *Fallback) error {
		if d < 0 {
			return fmt.Errorf("timeout must not be negative, got %v", d)
		}
		f.timeout = d
		return nil
	}
}

// WithRetry sets the attempt bound and base backoff for transient failures.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(f *Fallback) error {
		if maxAttempts <= 0 {
			return retry.ErrInvalidMaxAttempts
		}
		f.policy.MaxAttempts = maxAttempts
		f.policy.BaseDelay = baseDelay
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fallback) error {
		f.logger = logger
		return nil
	}
}

// Fallback is the OCR stage used by text extraction.
type Fallback struct {
	engine   Engine
	renderer Renderer
	language string
	dpi      float64
	timeout  time.Duration
	policy   retry.Policy
	logger   *slog.Logger

	availOnce sync.Once
	availErr  error
}

// NewFallback creates a Fallback around engine. A nil engine is allowed and
// makes every OCR request fail with core.ErrOCRUnavailable.
func NewFallback(engine Engine, opts ...Option) (*Fallback, error) {
	f := &Fallback{
		engine:   engine,
		language: DefaultLanguage,
		dpi:      DefaultDPI,
		timeout:  time.Minute,
		policy: retry.Policy{
			MaxAttempts: 2,
			BaseDelay:   500 * time.Millisecond,
			Retryable:   retry.IsTransient,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, core.ConfigurationError("ocr", err)
		}
	}
	f.logger = f.logger.With("component", "ocr")
	f.policy.Logger = f.logger
	return f, nil
}

// DPI returns the rendering resolution.
func (f *Fallback) DPI() float64 {
	return f.dpi
}

// Available checks engine availability once and caches the answer.
func (f *Fallback) Available() error {
	f.availOnce.Do(func() {
		switch {
		case f.engine == nil:
			f.availErr = core.ExtractionError("no ocr engine configured", core.ErrOCRUnavailable)
		default:
			if err := f.engine.Available(); err != nil {
				if !errors.Is(err, core.ErrOCRUnavailable) {
					err = fmt.Errorf("%w: %w", core.ErrOCRUnavailable, err)
				}
				f.availErr = core.ExtractionError("", err)
			}
		}
		if f.availErr != nil {
			f.logger.Warn("ocr engine unavailable", "err", f.availErr)
		}
	})
	return f.availErr
}

// RecognizeImage returns normalized text recognized in img.
func (f *Fallback) RecognizeImage(ctx context.Context, img image.Image) (string, error) {
	if err := f.Available(); err != nil {
		return "", err
	}
	return f.recognize(ctx, img)
}

// RecognizePage renders the 1-based page of a document and recognizes it.
// The raster is released when the call returns.
func (f *Fallback) RecognizePage(ctx context.Context, data []byte, page int) (string, error) {
	if err := f.Available(); err != nil {
		return "", err
	}
	if f.renderer == nil {
		return "", core.ExtractionError(fmt.Sprintf("page %d", page), ErrNoRenderer)
	}

	img, err := f.renderer.RenderPage(ctx, data, page, f.dpi)
	if err != nil {
		return "", core.ExtractionError(fmt.Sprintf("rendering page %d", page), err)
	}
	return f.recognize(ctx, img)
}

func (f *Fallback) recognize(ctx context.Context, img image.Image) (string, error) {
	var text string
	err := retry.WithBackoff(ctx, f.policy, func(ctx context.Context) error {
		callCtx, cancel := f.callContext(ctx)
		defer cancel()

		out, err := f.engine.Recognize(callCtx, img, f.language)
		if err != nil {
			if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				return retry.Transient(fmt.Errorf("ocr call exceeded %s: %w", f.timeout, err))
			}
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return "", core.ExtractionError("ocr failed", err)
	}
	return NormalizeText(text), nil
}

func (f *Fallback) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout > 0 {
		return context.WithTimeout(ctx, f.timeout)
	}
	return context.WithCancel(ctx)
}

// NormalizeText collapses runs of whitespace to single spaces and trims.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
