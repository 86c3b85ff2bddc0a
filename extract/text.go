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
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/poiesic/docproc/core"
)

type textStrategy struct {
	format core.Format
}

func (s *textStrategy) Format() core.Format {
	return s.format
}

func (s *textStrategy) Extract(_ context.Context, data []byte) (*core.ExtractedContent, error) {
	decoded, encoding, err := decodeText(data)
	if err != nil {
		return nil, core.ExtractionError("decoding text", err)
	}
	text := normalizeText(decoded)

	content := &core.ExtractedContent{
		Format: s.format,
		Method: "direct",
		Text:   text,
		Units:  []core.Unit{{Number: 1, Text: text}},
	}
	content.Structure.UnitCount = 1
	if encoding == "latin-1" {
		content.Warnings = append(content.Warnings, "invalid utf-8, decoded as latin-1")
	}
	return content, nil
}

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// decodeText returns data as a string and the name of the encoding used.
func decodeText(data []byte) (string, string, error) {
	switch {
	case bytes.HasPrefix(data, utf8BOM):
		data = data[len(utf8BOM):]
		if !utf8.Valid(data) {
			return "", "", fmt.Errorf("%w: invalid utf-8 after byte order mark", ErrMalformedDocument)
		}
		return string(data), "utf-8", nil
	case bytes.HasPrefix(data, utf16LEBOM), bytes.HasPrefix(data, utf16BEBOM):
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		if err != nil {
			return "", "", fmt.Errorf("decoding utf-16: %w", err)
		}
		return string(out), "utf-16", nil
	case utf8.Valid(data):
		return string(data), "utf-8", nil
	default:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return "", "", fmt.Errorf("decoding latin-1: %w", err)
		}
		return string(out), "latin-1", nil
	}
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	trailingSpace   = regexp.MustCompile(` *\n *`)
	extraBreaks     = regexp.MustCompile(`\n{3,}`)
)

// normalizeText unifies line endings, collapses horizontal whitespace and
// limits blank lines to a single paragraph break.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\x00", "")
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = trailingSpace.ReplaceAllString(s, "\n")
	s = extraBreaks.ReplaceAllString(s, core.UnitSeparator)
	return strings.TrimSpace(s)
}
