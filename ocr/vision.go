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


package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/docproc/core"
)

// DefaultVisionPrompt instructs a vision model to act as an OCR engine.
const DefaultVisionPrompt = "Transcribe all text visible in this image exactly as written. " +
	"Output only the transcribed text with no commentary. If there is no text, output nothing."

// VisionEngine recognizes text by sending rasters to a multimodal model.
type VisionEngine struct {
	model  llms.Model
	prompt string
}

var _ Engine = (*VisionEngine)(nil)

// NewVisionEngine wraps a langchaingo model. A nil model is reported by Available.
func NewVisionEngine(model llms.Model) *VisionEngine {
	return &VisionEngine{model: model, prompt: DefaultVisionPrompt}
}

// NewOpenAIVisionEngine connects to an OpenAI compatible endpoint serving a vision model.
func NewOpenAIVisionEngine(host, model, token string) (*VisionEngine, error) {
	if host == "" || model == "" {
		return nil, fmt.Errorf("%w: vision engine needs a host and a model", core.ErrOCRUnavailable)
	}
	client, err := openai.New(
		openai.WithBaseURL(host),
		openai.WithModel(model),
		openai.WithToken(token),
	)
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}
	return NewVisionEngine(client), nil
}

// Available reports whether a model is configured.
func (e *VisionEngine) Available() error {
	if e.model == nil {
		return fmt.Errorf("%w: no vision model configured", core.ErrOCRUnavailable)
	}
	return nil
}

// Recognize sends img as a PNG part alongside the transcription prompt.
func (e *VisionEngine) Recognize(ctx context.Context, img image.Image, language string) (string, error) {
	if err := e.Available(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encoding raster: %w", err)
	}

	prompt := e.prompt
	if language != "" {
		prompt += " Expected language code: " + language + "."
	}
	msgs := []llms.MessageContent{{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.TextPart(prompt),
			llms.BinaryPart("image/png", buf.Bytes()),
		},
	}}

	resp, err := e.model.GenerateContent(ctx, msgs, llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("vision ocr: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("vision ocr: no choices returned")
	}
	return resp.Choices[0].Content, nil
}
