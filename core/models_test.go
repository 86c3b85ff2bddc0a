package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, IDFromContent(tt.content), IDFromContent(tt.content))
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	assert.NotEqual(t, IDFromContent("content1"), IDFromContent("content2"))
}

func TestID_String(t *testing.T) {
	assert.Equal(t, "00000000000000ff", ID(255).String())
	assert.Len(t, IDFromContent("x").String(), 16)
}

func TestSourceDocument_NameAndExtension(t *testing.T) {
	tests := []struct {
		name     string
		doc      *SourceDocument
		wantName string
		wantExt  string
	}{
		{name: "path", doc: NewSourceFile("/tmp/reports/Q3.PDF"), wantName: "Q3.PDF", wantExt: ".pdf"},
		{name: "bytes", doc: NewSourceBytes("notes.md", []byte("# hi")), wantName: "notes.md", wantExt: ".md"},
		{name: "name wins over path", doc: &SourceDocument{Path: "/x/a.txt", Name: "b.docx"}, wantName: "b.docx", wantExt: ".docx"},
		{name: "no extension", doc: NewSourceFile("README"), wantName: "README", wantExt: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantName, tt.doc.Filename())
			assert.Equal(t, tt.wantExt, tt.doc.Extension())
		})
	}
}

func TestFormat_Valid(t *testing.T) {
	for _, f := range Formats {
		assert.True(t, f.Valid(), f)
	}
	assert.False(t, Format("xyz").Valid())
	assert.False(t, Format("").Valid())
}

func TestJoinUnits_SkipsEmpty(t *testing.T) {
	units := []Unit{{Number: 1, Text: "one"}, {Number: 2}, {Number: 3, Text: "three"}}
	assert.Equal(t, "one\n\nthree", JoinUnits(units))
	assert.Equal(t, "", JoinUnits(nil))
}

func TestExtractedContent_Metadata(t *testing.T) {
	t.Run("pdf with ocr pages", func(t *testing.T) {
		c := &ExtractedContent{
			Format:    FormatPDF,
			Method:    "text_layer+ocr",
			Text:      "abc",
			Structure: Structure{UnitCount: 5, OCRUnits: []int{4, 5}},
		}
		md := c.Metadata()
		assert.Equal(t, "pdf", md["format"])
		assert.Equal(t, "5", md["unit_count"])
		assert.Equal(t, "5", md["page_count"])
		assert.Equal(t, "4,5", md["ocr_pages"])
		assert.Equal(t, "3", md["text_length"])
	})

	t.Run("pptx", func(t *testing.T) {
		c := &ExtractedContent{
			Format:    FormatPPTX,
			Structure: Structure{UnitCount: 2, SlideCount: 2, ShapeCount: 4, ShapesWithTablesCount: 1, HasTables: true},
		}
		md := c.Metadata()
		assert.Equal(t, "2", md["slide_count"])
		assert.Equal(t, "1", md["shapes_with_tables_count"])
		assert.Equal(t, "true", md["has_tables"])
		assert.Equal(t, "false", md["has_notes"])
		_, ok := md["ocr_pages"]
		assert.False(t, ok)
	})

	t.Run("image with warning", func(t *testing.T) {
		c := &ExtractedContent{
			Format:    FormatImage,
			Structure: Structure{UnitCount: 1, ImageWidth: 640, ImageHeight: 480},
			Warnings:  []string{"ocr failed"},
		}
		md := c.Metadata()
		assert.Equal(t, "640x480", md["image_size"])
		assert.Equal(t, "ocr failed", md["extraction_warning"])
	})
}

func TestDocumentChunk_Body(t *testing.T) {
	c := DocumentChunk{Text: "tail of previous new content", OverlapLen: len("tail of previous ")}
	assert.Equal(t, "new content", c.Body())
}

func TestProcessResult_Outcome(t *testing.T) {
	r := &ProcessResult{
		Stages:    map[Stage]StageOutcome{StageExtraction: OutcomeSucceeded},
		Structure: Structure{OCRUnits: []int{2}},
	}
	assert.Equal(t, OutcomeSucceeded, r.Outcome(StageExtraction))
	assert.Equal(t, OutcomeSkipped, r.Outcome(StageChunking))

	pages := r.OCRPages()
	require.Equal(t, []int{2}, pages)
	pages[0] = 9
	assert.Equal(t, []int{2}, r.Structure.OCRUnits)
}

func TestSummary_WordCount(t *testing.T) {
	s := &Summary{Text: "  three short words "}
	assert.Equal(t, 3, s.WordCount())
}
