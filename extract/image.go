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
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/poiesic/docproc/core"
)

type imageStrategy struct {
	engine *Engine
}

func (s *imageStrategy) Format() core.Format {
	return core.FormatImage
}

// Extract decodes the image and recognizes it as a single unit. OCR failure
// is fatal unless best-effort images are enabled.
func (s *imageStrategy) Extract(ctx context.Context, data []byte) (*core.ExtractedContent, error) {
	img, kind, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, core.ExtractionError("decoding image", fmt.Errorf("%w: %w", ErrMalformedDocument, err))
	}
	bounds := img.Bounds()

	content := &core.ExtractedContent{
		Format: core.FormatImage,
		Method: "ocr",
	}
	content.Structure.ImageWidth = bounds.Dx()
	content.Structure.ImageHeight = bounds.Dy()
	content.Structure.UnitCount = 1

	var text string
	if s.engine.ocrEnabled {
		text, err = s.engine.ocr.RecognizeImage(ctx, img)
	} else {
		err = core.ExtractionError("ocr disabled", core.ErrOCRUnavailable)
	}
	if err != nil {
		if !s.engine.bestEffortImages {
			return nil, err
		}
		s.engine.logger.Warn("image ocr failed, returning empty text", "image_type", kind, "err", err)
		content.Warnings = append(content.Warnings, err.Error())
		text = ""
	}

	content.Text = text
	content.Units = []core.Unit{{Number: 1, Text: text, OCR: text != ""}}
	if text != "" {
		content.Structure.OCRUnits = []int{1}
	}
	return content, nil
}
