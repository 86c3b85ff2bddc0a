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
	"encoding/xml"
	"strings"

	"github.com/poiesic/docproc/core"
)

type docxStrategy struct{}

func (s *docxStrategy) Format() core.Format {
	return core.FormatDOCX
}

// Extract walks word/document.xml, emitting body paragraphs and tables in
// document order.
func (s *docxStrategy) Extract(_ context.Context, data []byte) (*core.ExtractedContent, error) {
	zr, err := openArchive(data)
	if err != nil {
		return nil, core.ExtractionError("opening docx", err)
	}
	body, err := readPart(zr, "word/document.xml")
	if err != nil {
		return nil, core.ExtractionError("opening docx", err)
	}

	var (
		blocks     []string
		paragraphs int
		tables     int
		depth      int
		table      *tableBuilder
		paras      []*strings.Builder
		inText     bool
		fallback   int
	)
	current := func() *strings.Builder {
		if len(paras) == 0 {
			return nil
		}
		return paras[len(paras)-1]
	}

	err = tokens(body, func(tok xml.Token) {
		// mc:Fallback repeats the content of its mc:Choice sibling for
		// older readers.
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "Fallback" {
				fallback++
			}
		case xml.EndElement:
			if t.Name.Local == "Fallback" {
				fallback--
				return
			}
		}
		if fallback > 0 {
			return
		}

		para := current()
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				depth++
				if depth == 1 {
					table = &tableBuilder{}
				}
			case "tr":
				if depth == 1 {
					table.startRow()
				}
			case "tc":
				if depth == 1 {
					table.startCell()
				}
			case "p":
				paras = append(paras, &strings.Builder{})
			case "t":
				inText = true
			case "tab":
				if para != nil {
					para.WriteByte(' ')
				}
			case "br", "cr":
				if para != nil {
					para.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText && para != nil {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if para == nil {
					return
				}
				text := normalizeText(para.String())
				paras = paras[:len(paras)-1]
				switch outer := current(); {
				case outer != nil:
					// A text box paragraph nested inside another one.
					if text != "" {
						outer.WriteString("\n" + text + "\n")
					}
				case depth > 0:
					table.addParagraph(text)
				case text != "":
					blocks = append(blocks, text)
					paragraphs++
				}
			case "tc":
				if depth == 1 {
					table.endCell()
				}
			case "tr":
				if depth == 1 {
					table.endRow()
				}
			case "tbl":
				depth--
				if depth == 0 {
					tables++
					if text := table.text(); text != "" {
						blocks = append(blocks, text)
					}
					table = nil
				}
			}
		}
	})
	if err != nil {
		return nil, core.ExtractionError("parsing docx", err)
	}

	text := strings.Join(blocks, core.UnitSeparator)
	content := &core.ExtractedContent{
		Format: core.FormatDOCX,
		Method: "ooxml",
		Text:   text,
		Units:  []core.Unit{{Number: 1, Text: text}},
	}
	content.Structure.UnitCount = 1
	content.Structure.ParagraphCount = paragraphs
	content.Structure.TableCount = tables
	content.Structure.HasTables = tables > 0
	return content, nil
}
