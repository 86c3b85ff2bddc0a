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
	"errors"
	"fmt"
	"log/slog"
)

// Fallback tries a list of providers in order and returns the first success.
type Fallback struct {
	providers []Completer
	logger    *slog.Logger
}

var _ Completer = (*Fallback)(nil)

// NewFallback returns a Completer that falls through providers in order.
func NewFallback(providers ...Completer) (*Fallback, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	for i, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("%w: provider %d", ErrCompleterRequired, i)
		}
	}
	return &Fallback{
		providers: providers,
		logger:    slog.Default().With("component", "llm-fallback"),
	}, nil
}

// Complete returns the first successful reply. When every provider fails
// the joined errors are returned; the result is transient if any cause was.
func (f *Fallback) Complete(ctx context.Context, messages []Message, temperature float64) (string, error) {
	var errs []error
	for i, p := range f.providers {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := p.Complete(ctx, messages, temperature)
		if err == nil {
			if i > 0 {
				f.logger.Debug("fallback provider succeeded", "provider", i)
			}
			return text, nil
		}
		f.logger.Warn("provider failed", "provider", i, "err", err)
		errs = append(errs, fmt.Errorf("provider %d: %w", i, err))
	}
	return "", errors.Join(errs...)
}
