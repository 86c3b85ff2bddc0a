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


package chunk

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter returns the number of tokens in text. It must never return a
// negative number and must be safe for concurrent use.
type Counter func(text string) int

// WordCounter counts whitespace-separated words.
func WordCounter(text string) int {
	return len(strings.Fields(text))
}

// NewTiktokenCounter returns a Counter backed by a tiktoken encoding such as
// "cl100k_base" or "o200k_base".
func NewTiktokenCounter(encoding string) (Counter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading encoding %q: %w", encoding, err)
	}
	return tiktokenCounter(enc), nil
}

// NewTiktokenCounterForModel returns a Counter using the encoding of a model.
func NewTiktokenCounterForModel(model string) (Counter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("loading encoding for model %q: %w", model, err)
	}
	return tiktokenCounter(enc), nil
}

func tiktokenCounter(enc *tiktoken.Tiktoken) Counter {
	return func(text string) int {
		if text == "" {
			return 0
		}
		return len(enc.Encode(text, nil, nil))
	}
}

// CounterByName resolves a counter by name: "words" (or empty) selects
// WordCounter; anything else is treated as a tiktoken encoding name.
func CounterByName(name string) (Counter, error) {
	switch name {
	case "", "words":
		return WordCounter, nil
	default:
		return NewTiktokenCounter(name)
	}
}
