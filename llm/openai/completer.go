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


package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/docproc/config"
	"github.com/poiesic/docproc/core"
	"github.com/poiesic/docproc/llm"
	"github.com/poiesic/docproc/retry"
)

// ErrHostRequired is returned when no LLM host is configured.
var ErrHostRequired = errors.New("llm host required")

// Completer implements llm.Completer on top of a langchaingo model.
type Completer struct {
	client llms.Model
	logger *slog.Logger
}

var _ llm.Completer = (*Completer)(nil)

// newCompleter is an internal constructor that returns the concrete type.
func newCompleter(cfg *config.Config) (*Completer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.LLMHost == "" {
		return nil, core.ConfigurationError("openai completer", ErrHostRequired)
	}

	token := cfg.LLMToken
	if token == "" {
		// Local OpenAI-compatible services don't require authentication
		token = "none"
	}
	client, err := openai.New(
		openai.WithBaseURL(cfg.LLMHost),
		openai.WithToken(token),
		openai.WithModel(cfg.LLMModel),
	)
	if err != nil {
		return nil, core.ConfigurationError("openai completer", err)
	}
	return newCompleterWithModel(client), nil
}

func newCompleterWithModel(model llms.Model) *Completer {
	return &Completer{
		client: model,
		logger: slog.Default().With("component", "openai-completer"),
	}
}

// NewCompleter creates a completer for the host and model in cfg.
//
// Returns llm.Completer interface to enforce abstraction.
func NewCompleter(cfg *config.Config) (llm.Completer, error) {
	return newCompleter(cfg)
}

// NewCompleterWithModel adapts an existing langchaingo model.
func NewCompleterWithModel(model llms.Model) llm.Completer {
	return newCompleterWithModel(model)
}

// Complete sends messages to the model and returns the first choice.
// Rate limits, timeouts and provider outages are marked transient.
func (c *Completer) Complete(ctx context.Context, messages []llm.Message, temperature float64) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.MessageContent{
			Role:  chatRole(m.Role),
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}

	response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(temperature))
	if err != nil {
		c.logger.Debug("failed to generate content", "err", err)
		return "", classify(err)
	}
	if len(response.Choices) < 1 {
		return "", core.ErrEmptyResponse
	}

	text := strings.TrimSpace(response.Choices[0].Content)
	if text == "" {
		return "", core.ErrEmptyResponse
	}
	return text, nil
}

func chatRole(role llm.Role) llms.ChatMessageType {
	switch role {
	case llm.RoleSystem:
		return llms.ChatMessageTypeSystem
	case llm.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// classify maps provider errors onto langchaingo's error codes and marks the
// retryable ones.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var lerr *llms.Error
	if !errors.As(err, &lerr) {
		if mapped := openai.MapError(err); errors.As(mapped, &lerr) {
			err = mapped
		}
	}
	if lerr != nil {
		switch lerr.Code {
		case llms.ErrCodeRateLimit, llms.ErrCodeTimeout, llms.ErrCodeProviderUnavailable:
			return retry.Transient(err)
		}
	}
	if retry.IsTransient(err) {
		return retry.Transient(err)
	}
	for code := 500; code <= 504; code++ {
		if retry.RetryableStatus(code) && strings.Contains(err.Error(), fmt.Sprintf("status code: %d", code)) {
			return retry.Transient(err)
		}
	}
	return err
}
