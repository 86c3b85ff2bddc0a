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


package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/docproc/llm"
)

// MockCompleter is a test double for llm.Completer.
// It allows custom behavior injection via function fields and is safe for
// concurrent use.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, the reply echoes the first words of the last message.
	CompleteFunc func(ctx context.Context, messages []llm.Message, temperature float64) (string, error)

	mu           sync.Mutex
	callCount    int
	lastMessages []llm.Message
	temperatures []float64
}

// NewMockCompleter creates a mock completer with default behavior.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// NewMockCompleterWithFunc creates a mock completer that delegates to fn.
func NewMockCompleterWithFunc(fn func(ctx context.Context, messages []llm.Message, temperature float64) (string, error)) *MockCompleter {
	return &MockCompleter{CompleteFunc: fn}
}

// Complete records the call and returns the injected or default reply.
func (m *MockCompleter) Complete(ctx context.Context, messages []llm.Message, temperature float64) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastMessages = append([]llm.Message(nil), messages...)
	m.temperatures = append(m.temperatures, temperature)
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages, temperature)
	}

	if len(messages) == 0 {
		return "", nil
	}
	words := strings.Fields(messages[len(messages)-1].Content)
	if len(words) > 12 {
		words = words[:12]
	}
	return "summary: " + strings.Join(words, " "), nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastMessages returns the messages of the most recent call.
func (m *MockCompleter) LastMessages() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Message(nil), m.lastMessages...)
}

// Temperatures returns the temperature of every call in order.
func (m *MockCompleter) Temperatures() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.temperatures...)
}
