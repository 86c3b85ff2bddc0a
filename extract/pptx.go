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
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/poiesic/docproc/core"
)

const notesRelType = "/notesSlide"

type presentation struct {
	Slides []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type slideContent struct {
	texts       []string
	tables      []string
	shapes      int
	tableShapes int
}

type pptxStrategy struct{}

func (s *pptxStrategy) Format() core.Format {
	return core.FormatPPTX
}

// Extract emits one unit per slide in presentation order: a slide marker,
// text shapes, tables, then speaker notes.
func (s *pptxStrategy) Extract(_ context.Context, data []byte) (*core.ExtractedContent, error) {
	zr, err := openArchive(data)
	if err != nil {
		return nil, core.ExtractionError("opening pptx", err)
	}
	raw, err := readPart(zr, "ppt/presentation.xml")
	if err != nil {
		return nil, core.ExtractionError("opening pptx", err)
	}
	var pres presentation
	if err := xml.Unmarshal(raw, &pres); err != nil {
		return nil, core.ExtractionError("parsing presentation", fmt.Errorf("%w: %w", ErrMalformedDocument, err))
	}
	rels, err := readRels(zr, "ppt/presentation.xml")
	if err != nil {
		return nil, core.ExtractionError("parsing presentation", err)
	}

	content := &core.ExtractedContent{
		Format: core.FormatPPTX,
		Method: "ooxml",
	}
	st := &content.Structure

	for i, ref := range pres.Slides {
		number := i + 1
		rel, ok := rels[ref.RID]
		if !ok {
			return nil, core.ExtractionError(fmt.Sprintf("slide %d", number),
				fmt.Errorf("%w: no relationship %q", ErrMalformedDocument, ref.RID))
		}
		slide, notes, err := readSlide(zr, rel.Target)
		if err != nil {
			return nil, core.ExtractionError(fmt.Sprintf("slide %d", number), err)
		}

		parts := []string{fmt.Sprintf("--- Slide %d ---", number)}
		parts = append(parts, slide.texts...)
		parts = append(parts, slide.tables...)
		if notes != "" {
			parts = append(parts, fmt.Sprintf("[Notes for Slide %d]", number), notes)
			st.HasNotes = true
		}
		content.Units = append(content.Units, core.Unit{Number: number, Text: strings.Join(parts, "\n")})

		st.ShapeCount += slide.shapes
		st.ShapesWithTablesCount += slide.tableShapes
		st.TableCount += len(slide.tables)
	}

	st.SlideCount = len(pres.Slides)
	st.UnitCount = len(content.Units)
	st.HasTables = st.ShapesWithTablesCount > 0
	content.Text = core.JoinUnits(content.Units)
	return content, nil
}

func readSlide(zr *zip.Reader, name string) (slideContent, string, error) {
	raw, err := readPart(zr, name)
	if err != nil {
		return slideContent{}, "", err
	}
	slide, err := parseSlide(raw, false)
	if err != nil {
		return slideContent{}, "", err
	}

	rels, err := readRels(zr, name)
	if err != nil {
		return slideContent{}, "", err
	}
	for _, rel := range rels {
		if !strings.HasSuffix(rel.Type, notesRelType) {
			continue
		}
		raw, err := readPart(zr, rel.Target)
		if err != nil {
			return slideContent{}, "", err
		}
		notes, err := parseSlide(raw, true)
		if err != nil {
			return slideContent{}, "", err
		}
		return slide, strings.Join(notes.texts, "\n"), nil
	}
	return slide, "", nil
}

// parseSlide collects shape text and tables from a slide or notes part.
// With bodyOnly set only body placeholders contribute text, which skips the
// slide image and number placeholders of a notes page.
func parseSlide(data []byte, bodyOnly bool) (slideContent, error) {
	var (
		out      slideContent
		inShape  bool
		phType   string
		paras    []string
		hasTable bool
		table    *tableBuilder
		para     strings.Builder
		inText   bool
	)

	err := tokens(data, func(tok xml.Token) {
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				out.shapes++
				inShape, phType, paras = true, "", nil
			case "ph":
				if inShape {
					phType = attr(t, "type")
				}
			case "pic", "cxnSp":
				out.shapes++
			case "graphicFrame":
				out.shapes++
				hasTable = false
			case "tbl":
				table = &tableBuilder{}
				hasTable = true
			case "tr":
				if table != nil {
					table.startRow()
				}
			case "tc":
				if table != nil {
					table.startCell()
				}
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "br":
				para.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := normalizeText(para.String())
				para.Reset()
				switch {
				case table != nil:
					table.addParagraph(text)
				case inShape && text != "":
					paras = append(paras, text)
				}
			case "tc":
				if table != nil {
					table.endCell()
				}
			case "tr":
				if table != nil {
					table.endRow()
				}
			case "tbl":
				if table == nil {
					break
				}
				if text := table.text(); text != "" {
					out.tables = append(out.tables, text)
				}
				table = nil
			case "graphicFrame":
				if hasTable {
					out.tableShapes++
				}
			case "sp":
				if len(paras) > 0 && (!bodyOnly || phType == "body") {
					out.texts = append(out.texts, strings.Join(paras, "\n"))
				}
				inShape = false
			}
		}
	})
	return out, err
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
