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


package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/docproc/core"
	"github.com/poiesic/docproc/ocr"
)

// DefaultMaxFileSize bounds the bytes read for one document.
const DefaultMaxFileSize = 100 << 20

// Option configures an Engine.
type Option func(*Engine) error

// WithOCR sets the OCR fallback used for scanned pages and images.
func WithOCR(f *ocr.Fallback) Option {
	return func(e *Engine) error {
		if f == nil {
			return errors.New("ocr fallback must not be nil; use WithoutOCR")
		}
		e.ocr = f
		e.ocrEnabled = true
		return nil
	}
}

// WithoutOCR disables OCR. Scan-like PDF pages keep their text layer and
// images fail unless best-effort handling is on.
func WithoutOCR() Option {
	return func(e *Engine) error {
		e.ocrEnabled = false
		return nil
	}
}

// WithOCRWorkers bounds how many PDF pages are recognized at once.
func WithOCRWorkers(n int) Option {
	return func(e *Engine) error {
		if n <= 0 {
			return fmt.Errorf("ocr workers must be positive, got %d", n)
		}
		e.ocrWorkers = n
		return nil
	}
}

// WithPageThresholds sets the text-sufficiency cutoffs for PDF pages.
// A zero density disables the density check.
func WithPageThresholds(minChars int, minCharsPerSquareInch float64) Option {
	return func(e *Engine) error {
		if minChars < 0 || minCharsPerSquareInch < 0 {
			return errors.New("page thresholds must not be negative")
		}
		e.minPageChars = minChars
		e.minDensity = minCharsPerSquareInch
		return nil
	}
}

// WithMaxFileSize bounds the size of a document in bytes.
func WithMaxFileSize(n int64) Option {
	return func(e *Engine) error {
		if n <= 0 {
			return fmt.Errorf("max file size must be positive, got %d", n)
		}
		e.maxFileSize = n
		return nil
	}
}

// WithBestEffortImages returns empty text plus a warning when image OCR fails.
func WithBestEffortImages(enabled bool) Option {
	return func(e *Engine) error {
		e.bestEffortImages = enabled
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

func withPDFOpener(open pdfOpener) Option {
	return func(e *Engine) error {
		e.openPDF = open
		return nil
	}
}

// Engine extracts text from any supported document.
type Engine struct {
	dispatcher       *Dispatcher
	ocr              *ocr.Fallback
	ocrEnabled       bool
	ocrWorkers       int
	minPageChars     int
	minDensity       float64
	maxFileSize      int64
	bestEffortImages bool
	openPDF          pdfOpener
	logger           *slog.Logger
}

// New creates an Engine. Without WithOCR the engine reports
// core.ErrOCRUnavailable the first time a document needs OCR.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		ocrEnabled:   true,
		ocrWorkers:   4,
		minPageChars: 50,
		maxFileSize:  DefaultMaxFileSize,
		openPDF:      openLedongthuc,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, core.ConfigurationError("extractor", err)
		}
	}
	if e.ocr == nil {
		f, err := ocr.NewFallback(nil, ocr.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		e.ocr = f
	}
	e.logger = e.logger.With("component", "extractor")

	e.dispatcher = NewDispatcher(
		&textStrategy{format: core.FormatText},
		&textStrategy{format: core.FormatMarkdown},
		&pdfStrategy{engine: e},
		&docxStrategy{},
		&pptxStrategy{},
		&imageStrategy{engine: e},
	)
	return e, nil
}

// Dispatcher exposes the engine's format registry.
func (e *Engine) Dispatcher() *Dispatcher {
	return e.dispatcher
}

// Extract reads doc and returns its text, units and structure.
func (e *Engine) Extract(ctx context.Context, doc *core.SourceDocument) (*core.ExtractedContent, error) {
	if err := core.ValidateSourceDocument(doc); err != nil {
		return nil, err
	}

	format := doc.Format
	if format == "" {
		f, err := Lookup(doc.Extension())
		if err != nil {
			return nil, err
		}
		format = f
	}
	strategy, err := e.dispatcher.ForFormat(format)
	if err != nil {
		return nil, err
	}

	data, err := e.read(doc)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	content, err := strategy.Extract(ctx, data)
	if err != nil {
		if core.KindOf(err) == nil {
			err = core.ExtractionError(doc.Filename(), err)
		}
		e.logger.Error("extraction failed", "file", doc.Filename(), "format", format, "err", err)
		return nil, err
	}
	if content.Structure.UnitCount == 0 {
		content.Structure.UnitCount = len(content.Units)
	}

	e.logger.Info("extracted document",
		"file", doc.Filename(),
		"format", format,
		"method", content.Method,
		"units", content.Structure.UnitCount,
		"ocr_units", len(content.Structure.OCRUnits),
		"chars", len(content.Text),
		"elapsed", time.Since(start))
	return content, nil
}

func (e *Engine) read(doc *core.SourceDocument) ([]byte, error) {
	if doc.Data != nil {
		if int64(len(doc.Data)) > e.maxFileSize {
			return nil, e.tooLarge(doc, int64(len(doc.Data)))
		}
		return doc.Data, nil
	}

	info, err := os.Stat(doc.Path)
	if err != nil {
		return nil, core.ExtractionError(fmt.Sprintf("reading %s", doc.Path), err)
	}
	if info.IsDir() {
		return nil, core.ExtractionError(fmt.Sprintf("reading %s", doc.Path), errors.New("is a directory"))
	}
	if info.Size() > e.maxFileSize {
		return nil, e.tooLarge(doc, info.Size())
	}
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, core.ExtractionError(fmt.Sprintf("reading %s", doc.Path), err)
	}
	return data, nil
}

func (e *Engine) tooLarge(doc *core.SourceDocument, size int64) error {
	return core.ExtractionError(
		fmt.Sprintf("%s is %d bytes, limit %d", doc.Filename(), size, e.maxFileSize),
		core.ErrFileTooLarge)
}
