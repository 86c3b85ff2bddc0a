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
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/docproc/core"
)

var extensions = map[string]core.Format{
	".pdf":      core.FormatPDF,
	".docx":     core.FormatDOCX,
	".pptx":     core.FormatPPTX,
	".txt":      core.FormatText,
	".text":     core.FormatText,
	".md":       core.FormatMarkdown,
	".markdown": core.FormatMarkdown,
	".png":      core.FormatImage,
	".jpg":      core.FormatImage,
	".jpeg":     core.FormatImage,
	".gif":      core.FormatImage,
	".bmp":      core.FormatImage,
	".tif":      core.FormatImage,
	".tiff":     core.FormatImage,
}

// Lookup returns the format for a file extension. The match is
// case-insensitive and the leading dot is optional.
func Lookup(ext string) (core.Format, error) {
	key := strings.ToLower(strings.TrimSpace(ext))
	if key != "" && !strings.HasPrefix(key, ".") {
		key = "." + key
	}
	format, ok := extensions[key]
	if !ok {
		return "", core.ExtractionError(fmt.Sprintf("extension %q", ext), core.ErrUnsupportedFormat)
	}
	return format, nil
}

// Extensions returns the supported extensions for format, sorted.
func Extensions(format core.Format) []string {
	var out []string
	for ext, f := range extensions {
		if f == format {
			out = append(out, ext)
		}
	}
	slices.Sort(out)
	return out
}

// Strategy extracts text from the raw bytes of one format.
type Strategy interface {
	Format() core.Format
	Extract(ctx context.Context, data []byte) (*core.ExtractedContent, error)
}

// Dispatcher holds one Strategy per format.
type Dispatcher struct {
	strategies map[core.Format]Strategy
}

// NewDispatcher registers strategies. A later strategy for the same format
// replaces an earlier one.
func NewDispatcher(strategies ...Strategy) *Dispatcher {
	d := &Dispatcher{strategies: make(map[core.Format]Strategy, len(strategies))}
	for _, s := range strategies {
		d.strategies[s.Format()] = s
	}
	return d
}

// Resolve returns the strategy for a file extension.
func (d *Dispatcher) Resolve(ext string) (Strategy, error) {
	format, err := Lookup(ext)
	if err != nil {
		return nil, err
	}
	return d.ForFormat(format)
}

// ForFormat returns the strategy registered for format.
func (d *Dispatcher) ForFormat(format core.Format) (Strategy, error) {
	s, ok := d.strategies[format]
	if !ok {
		return nil, core.ExtractionError(fmt.Sprintf("format %q", format), ErrNoStrategy)
	}
	return s, nil
}
