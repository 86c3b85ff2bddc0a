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


package main

import (
	"encoding/json"
	"io"

	"github.com/poiesic/docproc/core"
	"github.com/poiesic/docproc/index"
	"github.com/poiesic/docproc/pipeline"
)

type summaryView struct {
	Text        string `json:"text"`
	Method      string `json:"method"`
	TargetWords int    `json:"target_words"`
	Fallback    bool   `json:"fallback"`
	Cause       string `json:"cause,omitempty"`
}

type chunkView struct {
	Index         int    `json:"index"`
	TokenCount    int    `json:"token_count"`
	OverlapTokens int    `json:"overlap_tokens"`
	Text          string `json:"text,omitempty"`
}

type resultView struct {
	DocumentID string            `json:"document_id"`
	Filename   string            `json:"filename"`
	Format     string            `json:"format"`
	UnitCount  int               `json:"unit_count"`
	OCRPages   []int             `json:"ocr_pages,omitempty"`
	Stages     map[string]string `json:"stages"`
	Summary    *summaryView      `json:"summary,omitempty"`
	Chunks     []chunkView       `json:"chunks,omitempty"`
	Metadata   map[string]string `json:"metadata"`
	Warnings   []string          `json:"warnings,omitempty"`
	Text       string            `json:"text,omitempty"`
}

func newResultView(r *core.ProcessResult, includeText bool) resultView {
	v := resultView{
		DocumentID: r.DocumentID,
		Filename:   r.Filename,
		Format:     string(r.Format),
		UnitCount:  r.UnitCount,
		OCRPages:   r.OCRPages(),
		Stages:     make(map[string]string, len(r.Stages)),
		Metadata:   r.Metadata,
	}
	for stage, outcome := range r.Stages {
		v.Stages[string(stage)] = string(outcome)
	}
	if s := r.Summary; s != nil {
		v.Summary = &summaryView{
			Text:        s.Text,
			Method:      string(s.Method),
			TargetWords: s.TargetWords,
			Fallback:    s.Fallback,
			Cause:       s.Cause,
		}
	}
	for _, c := range r.Chunks {
		cv := chunkView{Index: c.Index, TokenCount: c.TokenCount, OverlapTokens: c.OverlapTokens}
		if includeText {
			cv.Text = c.Text
		}
		v.Chunks = append(v.Chunks, cv)
	}
	for _, w := range r.Warnings {
		v.Warnings = append(v.Warnings, string(w.Stage)+": "+w.Message)
	}
	if includeText {
		v.Text = r.Text
	}
	return v
}

type batchView struct {
	Index  int         `json:"index"`
	Source string      `json:"source"`
	Result *resultView `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func newBatchView(r pipeline.BatchResult) batchView {
	v := batchView{Index: r.Index, Source: r.Source.Filename()}
	if r.Err != nil {
		v.Error = r.Err.Error()
		return v
	}
	rv := newResultView(r.Result, false)
	v.Result = &rv
	return v
}

type hitView struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Filename   string  `json:"filename,omitempty"`
	Preview    string  `json:"preview"`
}

func newHitView(h index.Hit) hitView {
	preview := h.Chunk.Metadata["chunk_preview"]
	if preview == "" {
		preview = index.Preview(h.Chunk.Text, index.PreviewRunes)
	}
	return hitView{
		DocumentID: h.Chunk.DocumentID,
		ChunkID:    h.Chunk.ID,
		ChunkIndex: h.Chunk.ChunkIndex,
		Score:      h.Score,
		Filename:   h.Chunk.Metadata["filename"],
		Preview:    preview,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
