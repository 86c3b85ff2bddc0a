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


package llm

import (
	"context"
	"strings"
	"sync"
)

// Usage is a snapshot of the traffic seen by a UsageCounter.
type Usage struct {
	Calls            int
	Failures         int
	PromptTokens     int
	CompletionTokens int
}

// TotalTokens returns prompt plus completion tokens.
func (u Usage) TotalTokens() int {
	return u.PromptTokens + u.CompletionTokens
}

// UsageCounter records call counts and token usage of a wrapped Completer.
type UsageCounter struct {
	next  Completer
	count func(string) int

	mu    sync.Mutex
	usage Usage
}

var _ Completer = (*UsageCounter)(nil)

// NewUsageCounter wraps next. count estimates the tokens in a string; nil
// counts whitespace-separated words.
func NewUsageCounter(next Completer, count func(string) int) (*UsageCounter, error) {
	if next == nil {
		return nil, ErrCompleterRequired
	}
	if count == nil {
		count = func(s string) int { return len(strings.Fields(s)) }
	}
	return &UsageCounter{next: next, count: count}, nil
}

// Complete calls through and records usage.
func (u *UsageCounter) Complete(ctx context.Context, messages []Message, temperature float64) (string, error) {
	prompt := 0
	for _, m := range messages {
		prompt += u.count(m.Content)
	}

	text, err := u.next.Complete(ctx, messages, temperature)

	u.mu.Lock()
	defer u.mu.Unlock()
	u.usage.Calls++
	u.usage.PromptTokens += prompt
	if err != nil {
		u.usage.Failures++
		return "", err
	}
	u.usage.CompletionTokens += u.count(text)
	return text, nil
}

// Usage returns the usage recorded so far.
func (u *UsageCounter) Usage() Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.usage
}

// Reset clears the recorded usage.
func (u *UsageCounter) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.usage = Usage{}
}
