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


// Package mupdf rasterizes PDF pages with MuPDF through go-fitz.
package mupdf

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"

	"github.com/poiesic/docproc/ocr"
)

// Renderer renders PDF pages held in memory.
type Renderer struct{}

var _ ocr.Renderer = Renderer{}

// NewRenderer returns a Renderer.
func NewRenderer() Renderer {
	return Renderer{}
}

// RenderPage renders the 1-based page at dpi. The MuPDF document is closed
// before returning so only the raster outlives the call.
func (Renderer) RenderPage(ctx context.Context, data []byte, page int, dpi float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer doc.Close()

	if page < 1 || page > doc.NumPage() {
		return nil, fmt.Errorf("%w: %d of %d", ocr.ErrInvalidPage, page, doc.NumPage())
	}

	img, err := doc.ImageDPI(page-1, dpi)
	if err != nil {
		return nil, fmt.Errorf("rendering page %d: %w", page, err)
	}
	return img, nil
}
