package core

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier for documents and cache entries.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID as fixed-width hex.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// Format identifies one of the closed set of supported document formats.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatPPTX     Format = "pptx"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatImage    Format = "image"
)

// Formats lists every supported format.
var Formats = []Format{FormatPDF, FormatDOCX, FormatPPTX, FormatText, FormatMarkdown, FormatImage}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	return slices.Contains(Formats, f)
}

// SourceDocument references the bytes of a document to process. Either Data
// or Path must be set; when both are present Data wins. Format is optional and
// is sniffed from the extension when empty. The pipeline never mutates it.
type SourceDocument struct {
	Path   string
	Name   string
	Data   []byte
	Format Format
}

// NewSourceFile references a document on disk.
func NewSourceFile(path string) *SourceDocument {
	return &SourceDocument{Path: path}
}

// NewSourceBytes references an in-memory document. name supplies the extension.
func NewSourceBytes(name string, data []byte) *SourceDocument {
	return &SourceDocument{Name: name, Data: data}
}

// Filename returns the display name of the document.
func (d *SourceDocument) Filename() string {
	if d.Name != "" {
		return filepath.Base(d.Name)
	}
	return filepath.Base(d.Path)
}

// Extension returns the lower-cased extension including the leading dot.
func (d *SourceDocument) Extension() string {
	name := d.Name
	if name == "" {
		name = d.Path
	}
	return strings.ToLower(filepath.Ext(name))
}

// UnitSeparator joins per-unit text into the normalized document text.
const UnitSeparator = "\n\n"

// Unit is one page, slide or block of extracted text. Number is 1-based.
type Unit struct {
	Number int
	Text   string
	OCR    bool
}

// Structure holds format-dependent structural facts about a document.
type Structure struct {
	UnitCount             int
	OCRUnits              []int
	TableCount            int
	ParagraphCount        int
	SlideCount            int
	ShapeCount            int
	ShapesWithTablesCount int
	HasTables             bool
	HasNotes              bool
	ImageWidth            int
	ImageHeight           int
}

// ExtractedContent is the output of text extraction for one document.
type ExtractedContent struct {
	Format    Format
	Method    string
	Text      string
	Units     []Unit
	Structure Structure
	Warnings  []string
}

// JoinUnits builds the normalized text from units, skipping empty ones.
func JoinUnits(units []Unit) string {
	parts := make([]string, 0, len(units))
	for _, u := range units {
		if u.Text != "" {
			parts = append(parts, u.Text)
		}
	}
	return strings.Join(parts, UnitSeparator)
}

// Metadata flattens the extraction facts into string metadata.
func (c *ExtractedContent) Metadata() map[string]string {
	s := c.Structure
	md := map[string]string{
		"format":            string(c.Format),
		"extraction_method": c.Method,
		"unit_count":        strconv.Itoa(s.UnitCount),
		"text_length":       strconv.Itoa(len([]rune(c.Text))),
	}
	switch c.Format {
	case FormatPDF:
		md["page_count"] = strconv.Itoa(s.UnitCount)
		if len(s.OCRUnits) > 0 {
			md["ocr_pages"] = JoinInts(s.OCRUnits)
		}
	case FormatDOCX:
		md["paragraph_count"] = strconv.Itoa(s.ParagraphCount)
		md["table_count"] = strconv.Itoa(s.TableCount)
	case FormatPPTX:
		md["slide_count"] = strconv.Itoa(s.SlideCount)
		md["shape_count"] = strconv.Itoa(s.ShapeCount)
		md["shapes_with_tables_count"] = strconv.Itoa(s.ShapesWithTablesCount)
		md["has_tables"] = strconv.FormatBool(s.HasTables)
		md["has_notes"] = strconv.FormatBool(s.HasNotes)
	case FormatImage:
		md["image_size"] = fmt.Sprintf("%dx%d", s.ImageWidth, s.ImageHeight)
	}
	if len(c.Warnings) > 0 {
		md["extraction_warning"] = strings.Join(c.Warnings, "; ")
	}
	return md
}

// JoinInts renders a list of integers as a comma-separated string.
func JoinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// DocumentChunk is a token-bounded slice of the normalized document text.
// Start and End are byte offsets into that text. The first OverlapLen bytes
// of Text repeat the tail of the previous chunk.
type DocumentChunk struct {
	Index         int
	Text          string
	TokenCount    int
	OverlapTokens int
	OverlapLen    int
	Start         int
	End           int
	Metadata      map[string]string
}

// Body returns the chunk text with the overlap prefix trimmed.
func (c DocumentChunk) Body() string {
	return c.Text[c.OverlapLen:]
}

// SummaryMethod records which path produced a summary.
type SummaryMethod string

const (
	SummaryMethodLLM        SummaryMethod = "llm"
	SummaryMethodExtractive SummaryMethod = "extractive"
)

// Summary is a target-length summary of a document.
type Summary struct {
	Text        string
	TargetWords int
	Fallback    bool
	Method      SummaryMethod
	// Cause is set when the extractive path ran because the client failed.
	Cause string
}

// WordCount returns the number of words in the summary text.
func (s *Summary) WordCount() int {
	return len(strings.Fields(s.Text))
}

// Stage names a pipeline stage.
type Stage string

const (
	StageExtraction    Stage = "extraction"
	StageChunking      Stage = "chunking"
	StageSummarization Stage = "summarization"
)

// StageOutcome records what happened to a stage during a run.
type StageOutcome string

const (
	OutcomeSkipped   StageOutcome = "skipped"
	OutcomeSucceeded StageOutcome = "succeeded"
	OutcomeDegraded  StageOutcome = "degraded"
)

// Warning is a non-fatal problem recorded during a run.
type Warning struct {
	Stage   Stage
	Message string
}

// ProcessResult is the assembled output of one pipeline run.
type ProcessResult struct {
	DocumentID string
	Filename   string
	Format     Format
	Text       string
	Chunks     []DocumentChunk
	Summary    *Summary
	UnitCount  int
	Structure  Structure
	Metadata   map[string]string
	Stages     map[Stage]StageOutcome
	Warnings   []Warning
}

// Outcome returns the recorded outcome for a stage.
func (r *ProcessResult) Outcome(stage Stage) StageOutcome {
	if o, ok := r.Stages[stage]; ok {
		return o
	}
	return OutcomeSkipped
}

// OCRPages returns the 1-based numbers of units that were recognized by OCR.
func (r *ProcessResult) OCRPages() []int {
	return slices.Clone(r.Structure.OCRUnits)
}
