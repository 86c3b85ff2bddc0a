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
	"strconv"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/poiesic/docproc/core"
)

// Caching memoizes replies keyed by the conversation and temperature.
// Failed calls are not cached.
type Caching struct {
	next   Completer
	cache  *lru.Cache[core.ID, string]
	hits   atomic.Int64
	misses atomic.Int64
}

var _ Completer = (*Caching)(nil)

// NewCaching wraps next with an LRU cache holding up to size replies.
func NewCaching(next Completer, size int) (*Caching, error) {
	if next == nil {
		return nil, ErrCompleterRequired
	}
	if size <= 0 {
		return nil, ErrInvalidCacheSize
	}
	cache, err := lru.New[core.ID, string](size)
	if err != nil {
		return nil, err
	}
	return &Caching{next: next, cache: cache}, nil
}

// Complete returns a cached reply or calls through and stores the result.
func (c *Caching) Complete(ctx context.Context, messages []Message, temperature float64) (string, error) {
	key := cacheKey(messages, temperature)
	if text, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return text, nil
	}
	c.misses.Add(1)

	text, err := c.next.Complete(ctx, messages, temperature)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, text)
	return text, nil
}

// Stats returns the number of cache hits and misses so far.
func (c *Caching) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached replies.
func (c *Caching) Len() int {
	return c.cache.Len()
}

func cacheKey(messages []Message, temperature float64) core.ID {
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(temperature, 'g', -1, 64))
	for _, m := range messages {
		b.WriteByte(0)
		b.WriteString(string(m.Role))
		b.WriteByte(0)
		b.WriteString(strconv.Itoa(len(m.Content)))
		b.WriteByte(':')
		b.WriteString(m.Content)
	}
	return core.IDFromContent(b.String())
}
