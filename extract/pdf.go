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
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/poiesic/docproc/core"
)

const pointsPerInch = 72

// pdfDocument is the page-level view of a parsed PDF.
type pdfDocument interface {
	NumPages() int
	// PageText returns the text layer of the 1-based page.
	PageText(page int) (string, error)
	// PageArea returns the media box area in square inches, or 0 when unknown.
	PageArea(page int) float64
}

type pdfOpener func(data []byte) (pdfDocument, error)

type ledongthucDocument struct {
	r *pdf.Reader
}

func openLedongthuc(data []byte) (pdfDocument, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty pdf", ErrMalformedDocument)
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return &ledongthucDocument{r: r}, nil
}

func (d *ledongthucDocument) NumPages() int {
	return d.r.NumPage()
}

func (d *ledongthucDocument) PageText(n int) (string, error) {
	page := d.r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func (d *ledongthucDocument) PageArea(n int) float64 {
	page := d.r.Page(n)
	if page.V.IsNull() {
		return 0
	}
	box := page.V.Key("MediaBox")
	for parent := page.V.Key("Parent"); box.IsNull() && !parent.IsNull(); parent = parent.Key("Parent") {
		box = parent.Key("MediaBox")
	}
	if box.Len() != 4 {
		return 0
	}
	w := math.Abs(box.Index(2).Float64()-box.Index(0).Float64()) / pointsPerInch
	h := math.Abs(box.Index(3).Float64()-box.Index(1).Float64()) / pointsPerInch
	return w * h
}

type pdfStrategy struct {
	engine *Engine
}

func (s *pdfStrategy) Format() core.Format {
	return core.FormatPDF
}

func (s *pdfStrategy) Extract(ctx context.Context, data []byte) (content *core.ExtractedContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			content = nil
			err = core.ExtractionError("parsing pdf", fmt.Errorf("%w: parser panic: %v", ErrMalformedDocument, r))
		}
	}()

	doc, err := s.engine.openPDF(data)
	if err != nil {
		return nil, core.ExtractionError("opening pdf", err)
	}

	n := doc.NumPages()
	units := make([]core.Unit, n)
	var scanned []int
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.PageText(i)
		if err != nil {
			return nil, core.ExtractionError(fmt.Sprintf("reading text layer of page %d", i), err)
		}
		text = normalizeText(text)
		units[i-1] = core.Unit{Number: i, Text: text}
		if s.scanLike(text, doc.PageArea(i)) {
			scanned = append(scanned, i)
		}
	}

	content = &core.ExtractedContent{
		Format: core.FormatPDF,
		Method: "text_layer",
	}

	switch {
	case len(scanned) == 0:
	case !s.engine.ocrEnabled:
		content.Warnings = append(content.Warnings,
			fmt.Sprintf("pages %s have little or no text layer and ocr is disabled", core.JoinInts(scanned)))
	default:
		if err := s.recognize(ctx, data, scanned, units); err != nil {
			return nil, err
		}
		content.Method = "text_layer+ocr"
		content.Structure.OCRUnits = scanned
	}

	content.Units = units
	content.Text = core.JoinUnits(units)
	content.Structure.UnitCount = n
	return content, nil
}

// recognize runs OCR on the given pages in parallel, writing each result
// into its own slot so page order is preserved.
func (s *pdfStrategy) recognize(ctx context.Context, data []byte, pages []int, units []core.Unit) error {
	if err := s.engine.ocr.Available(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.engine.ocrWorkers)
	for _, page := range pages {
		g.Go(func() error {
			text, err := s.engine.ocr.RecognizePage(gctx, data, page)
			if err != nil {
				return err
			}
			units[page-1].Text = text
			units[page-1].OCR = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if core.KindOf(err) == nil {
			err = core.ExtractionError("ocr of scanned pages", err)
		}
		return err
	}
	s.engine.logger.Debug("recognized scanned pages", "pages", core.JoinInts(pages))
	return nil
}

// scanLike reports whether a page's text layer is too thin to trust.
func (s *pdfStrategy) scanLike(text string, area float64) bool {
	chars := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			chars++
		}
	}
	if chars < s.engine.minPageChars || strings.TrimSpace(text) == "" {
		return true
	}
	if s.engine.minDensity > 0 && area > 0 {
		return float64(chars)/area < s.engine.minDensity
	}
	return false
}
