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
	"log/slog"
	"maps"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/docproc/core"
)

const (
	// DefaultChunkSize is the default upper bound on tokens per chunk.
	DefaultChunkSize = 512
	// DefaultChunkOverlap is the default number of tokens shared by neighbors.
	DefaultChunkOverlap = 50
	// DefaultMinChunkSize is the default lower bound on tokens per chunk.
	DefaultMinChunkSize = 100
)

// Params bounds the size of generated chunks. All values are token counts.
type Params struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
}

// DefaultParams returns the default chunking parameters.
func DefaultParams() Params {
	return Params{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		MinChunkSize: DefaultMinChunkSize,
	}
}

// Validate checks that the parameters describe a satisfiable chunking.
func (p Params) Validate() error {
	switch {
	case p.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidParams, p.ChunkSize)
	case p.ChunkOverlap < 0:
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidParams, p.ChunkOverlap)
	case p.ChunkOverlap >= p.ChunkSize:
		return fmt.Errorf("%w: chunk overlap %d must be less than chunk size %d", ErrInvalidParams, p.ChunkOverlap, p.ChunkSize)
	case p.MinChunkSize < 0:
		return fmt.Errorf("%w: min chunk size must not be negative, got %d", ErrInvalidParams, p.MinChunkSize)
	case p.MinChunkSize > p.ChunkSize:
		return fmt.Errorf("%w: min chunk size %d exceeds chunk size %d", ErrInvalidParams, p.MinChunkSize, p.ChunkSize)
	}
	return nil
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithCounter sets the token counter. Defaults to WordCounter.
func WithCounter(counter Counter) Option {
	return func(c *Chunker) error {
		if counter == nil {
			return ErrCounterRequired
		}
		c.counter = counter
		return nil
	}
}

// WithLookback sets how many tokens before the window limit may be given up
// to end a chunk on a better boundary. Defaults to a quarter of the chunk size.
func WithLookback(tokens int) Option {
	return func(c *Chunker) error {
		if tokens < 0 {
			return fmt.Errorf("%w: lookback must not be negative, got %d", ErrInvalidParams, tokens)
		}
		c.lookback = tokens
		return nil
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) error {
		c.logger = logger
		return nil
	}
}

// Chunker splits text into overlapping token-bounded chunks.
// A Chunker is immutable after construction and safe for concurrent use.
type Chunker struct {
	params   Params
	counter  Counter
	lookback int
	logger   *slog.Logger
}

// New validates params and returns a Chunker.
func New(params Params, opts ...Option) (*Chunker, error) {
	if err := params.Validate(); err != nil {
		return nil, core.ConfigurationError("chunker", err)
	}
	c := &Chunker{
		params:   params,
		counter:  WordCounter,
		lookback: max(1, params.ChunkSize/4),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, core.ConfigurationError("chunker option", err)
		}
	}
	c.logger = c.logger.With("component", "chunker")
	return c, nil
}

// Params returns the parameters the chunker was built with.
func (c *Chunker) Params() Params {
	return c.params
}

// Counter returns the chunker's token counter.
func (c *Chunker) Counter() Counter {
	return c.counter
}

// Chunk splits text into chunks. Empty or whitespace-only text yields no
// chunks. metadata is copied into every chunk.
func (c *Chunker) Chunk(text string, metadata map[string]string) ([]core.DocumentChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	t := &tokenizedText{text: text, counter: c.counter}
	total := t.count(0, len(text))
	if t.err != nil {
		return nil, core.ChunkingError("", t.err)
	}

	var spans []span
	if total <= c.params.ChunkSize {
		spans = []span{{start: 0, end: len(text)}}
	} else {
		pieces := t.split(c.params.ChunkSize)
		spans = c.mergeTail(t, c.windows(t, pieces))
	}

	chunks := make([]core.DocumentChunk, len(spans))
	for i, sp := range spans {
		chunk := core.DocumentChunk{
			Index:      i,
			Text:       text[sp.start:sp.end],
			TokenCount: t.count(sp.start, sp.end),
			Start:      sp.start,
			End:        sp.end,
			Metadata:   maps.Clone(metadata),
		}
		if i > 0 && spans[i-1].end > sp.start {
			chunk.OverlapLen = spans[i-1].end - sp.start
			chunk.OverlapTokens = t.count(sp.start, spans[i-1].end)
		}
		chunks[i] = chunk
	}
	if t.err != nil {
		return nil, core.ChunkingError("", t.err)
	}
	if err := core.ValidateChunks(chunks, c.params.ChunkSize); err != nil {
		return nil, core.ChunkingError("invariant violated", err)
	}

	c.logger.Debug("chunked text", "chunks", len(chunks), "tokens", total)
	return chunks, nil
}

// Reconstruct concatenates chunk bodies, yielding the text that was chunked.
func Reconstruct(chunks []core.DocumentChunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Body())
	}
	return b.String()
}

// span is a byte range of the source text that becomes one chunk.
type span struct {
	start, end int
}

// windows runs the sliding window over pieces and returns chunk spans.
// Window sizes are always measured over the joined text, since a tokenizer
// need not count a span as the sum of its pieces.
func (c *Chunker) windows(t *tokenizedText, pieces []piece) []span {
	var spans []span

	s, prevCut := 0, 0
	for s < len(pieces) {
		e := max(c.maxEnd(t, pieces, s), prevCut+1)

		cut := e
		if e < len(pieces) {
			cut = c.chooseCut(t, pieces, s, e, prevCut)
		}
		spans = append(spans, span{start: pieces[s].start, end: pieces[cut-1].end})
		if cut == len(pieces) {
			break
		}

		s = c.overlapStart(t, pieces, s, cut)
		prevCut = cut
	}
	return spans
}

// spanTokens counts the tokens of pieces [s, e).
func spanTokens(t *tokenizedText, pieces []piece, s, e int) int {
	if e <= s {
		return 0
	}
	return t.count(pieces[s].start, pieces[e-1].end)
}

// maxEnd returns the largest e such that pieces [s, e) fit in ChunkSize
// tokens, always taking at least one piece. It gallops forward and then
// bisects so that only a logarithmic number of spans is counted.
func (c *Chunker) maxEnd(t *tokenizedText, pieces []piece, s int) int {
	size := c.params.ChunkSize
	fits := func(e int) bool { return spanTokens(t, pieces, s, e) <= size }

	lo, hi, step := s+1, len(pieces), 1
	for lo < hi {
		next := min(lo+step, hi)
		if !fits(next) {
			hi = next - 1
			break
		}
		lo = next
		step *= 2
	}
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// chooseCut picks where the window [s, e) ends: the best-ranked boundary
// whose chunk stays above the look-back floor, preferring later cuts on ties.
// Near the end of the text a cut that would leave an undersized final chunk
// gives way to a later candidate, preferring the one needing fewer chunks,
// or else to a rebalanced cut.
func (c *Chunker) chooseCut(t *tokenizedText, pieces []piece, s, e, prevCut int) int {
	floor := max(c.params.MinChunkSize, spanTokens(t, pieces, s, e)-c.lookback)
	lowest := c.firstReaching(t, pieces, s, max(prevCut, s)+1, e, floor)

	// Best cut per rank, scanning from the window end.
	var byRank [boundaryParagraph + 1]int
	for j := e; j >= lowest; j-- {
		if rank := pieces[j-1].after; byRank[rank] == 0 {
			byRank[rank] = j
		}
	}
	candidates := make([]int, 0, len(byRank)+1)
	for rank := boundaryParagraph; rank >= boundaryNone; rank-- {
		if j := byRank[rank]; j != 0 && (len(candidates) == 0 || j > candidates[len(candidates)-1]) {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 || candidates[len(candidates)-1] != e {
		candidates = append(candidates, e)
	}
	if !c.nearEnd(pieces, s) {
		return candidates[0]
	}

	best := candidates[0]
	bestWindows, bestShort := c.plan(t, pieces, s, best)
	if !bestShort {
		return best
	}
	for _, j := range candidates[1:] {
		n, short := c.plan(t, pieces, s, j)
		if (bestShort && !short) || (short == bestShort && n < bestWindows) {
			best, bestWindows, bestShort = j, n, short
		}
	}
	if bestShort {
		if j, ok := c.rebalance(t, pieces, s, prevCut, lowest, best, bestWindows); ok {
			best = j
		}
	}
	return best
}

// firstReaching returns the smallest j in [lo, hi] whose span [s, j) holds at
// least floor tokens, or hi when none below it does.
func (c *Chunker) firstReaching(t *tokenizedText, pieces []piece, s, lo, hi, floor int) int {
	for lo < hi {
		mid := (lo + hi) / 2
		if spanTokens(t, pieces, s, mid) >= floor {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// nearEnd reports whether the rest of the text from piece s is short enough
// for look-ahead planning. Piece counts overestimate spans for merging
// tokenizers, so the bound is generous.
func (c *Chunker) nearEnd(pieces []piece, s int) bool {
	limit := nearEndWindows * c.params.ChunkSize
	rest := 0
	for _, p := range pieces[s:] {
		rest += p.tokens
		if rest > limit {
			return false
		}
	}
	return true
}

const nearEndWindows = 6

// plan simulates the remaining windows after cutting the window [s, cut)
// greedily. It returns how many chunks the text from s would need and
// whether the final chunk ends up below MinChunkSize without being mergeable.
func (c *Chunker) plan(t *tokenizedText, pieces []piece, s, cut int) (windows int, short bool) {
	windows = 1
	prevStart, prev := s, cut
	start := c.overlapStart(t, pieces, s, cut)
	for {
		e := max(c.maxEnd(t, pieces, start), prev+1)
		windows++
		if e == len(pieces) {
			break
		}
		prevStart, start, prev = start, c.overlapStart(t, pieces, start, e), e
	}

	if spanTokens(t, pieces, start, len(pieces)) >= c.params.MinChunkSize {
		return windows, false
	}
	if spanTokens(t, pieces, prevStart, len(pieces)) <= c.params.ChunkSize {
		return windows - 1, false
	}
	return windows, true
}

// rebalance moves the cut of the second-to-last window back so the final
// chunk reaches MinChunkSize, keeping the chunk count and the current chunk
// at or above MinChunkSize. It reports false when no such cut exists.
func (c *Chunker) rebalance(t *tokenizedText, pieces []piece, s, prevCut, lowest, cut, windows int) (int, bool) {
	minTokens := c.params.MinChunkSize
	first := c.firstReaching(t, pieces, s, max(prevCut, s)+1, cut, minTokens)
	if spanTokens(t, pieces, s, first) < minTokens {
		return 0, false
	}
	tailOK := func(j int) bool {
		ns := c.overlapStart(t, pieces, s, j)
		return spanTokens(t, pieces, ns, len(pieces)) >= minTokens
	}

	// The tail grows as the cut moves back: find the latest cut that works.
	lo, hi := first, cut
	if !tailOK(lo) {
		return 0, false
	}
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if tailOK(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	// Prefer a boundary at or before lo when one lies within the look-back.
	best := lo
	for j := lo; j >= max(first, lowest) && j > s; j-- {
		if pieces[j-1].after > pieces[best-1].after {
			best = j
		}
	}
	if n, short := c.plan(t, pieces, s, best); n > windows || short {
		if n, short := c.plan(t, pieces, s, lo); n > windows || short {
			return 0, false
		}
		return lo, true
	}
	return best, true
}

// overlapStart finds where the window after cut starts: the earliest piece
// such that the repeated text holds at most ChunkOverlap tokens and the next
// window can still take the piece at cut. It is always past s.
func (c *Chunker) overlapStart(t *tokenizedText, pieces []piece, s, cut int) int {
	overlap, size := c.params.ChunkOverlap, c.params.ChunkSize
	ok := func(ns int) bool {
		return spanTokens(t, pieces, ns, cut) <= overlap && spanTokens(t, pieces, ns, cut+1) <= size
	}

	lo, hi := s+1, cut
	for lo < hi {
		mid := (lo + hi) / 2
		if ok(mid) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// mergeTail folds an undersized final span into its predecessor when the
// result stays within ChunkSize.
func (c *Chunker) mergeTail(t *tokenizedText, spans []span) []span {
	if len(spans) < 2 {
		return spans
	}
	last := spans[len(spans)-1]
	if t.count(last.start, last.end) >= c.params.MinChunkSize {
		return spans
	}
	prev := spans[len(spans)-2]
	if t.count(prev.start, last.end) > c.params.ChunkSize {
		return spans
	}
	spans[len(spans)-2].end = last.end
	return spans[:len(spans)-1]
}

// boundary ranks the quality of cutting the text after a piece.
type boundary int

const (
	boundaryNone boundary = iota
	boundarySpace
	boundarySentence
	boundaryParagraph
)

// piece is a word plus its trailing whitespace, or a slice of an oversized
// word. Pieces tile the source text without gaps.
type piece struct {
	start, end int
	tokens     int
	after      boundary
}

type tokenizedText struct {
	text    string
	counter Counter
	err     error
}

func (t *tokenizedText) count(start, end int) int {
	n := t.counter(t.text[start:end])
	if n < 0 {
		t.err = fmt.Errorf("%w: %d", ErrNegativeCount, n)
		return 0
	}
	return n
}

// split tiles the text into pieces no larger than limit tokens each.
func (t *tokenizedText) split(limit int) []piece {
	var pieces []piece
	text := t.text
	i := 0
	for i < len(text) {
		start := i
		for i < len(text) {
			r, size := utf8.DecodeRuneInString(text[i:])
			if unicode.IsSpace(r) {
				break
			}
			i += size
		}
		wordEnd := i
		for i < len(text) {
			r, size := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(r) {
				break
			}
			i += size
		}
		pieces = t.appendPieces(pieces, start, wordEnd, i, limit)
	}
	return pieces
}

func (t *tokenizedText) appendPieces(pieces []piece, start, wordEnd, end, limit int) []piece {
	after := classify(t.text[start:wordEnd], t.text[wordEnd:end], end == len(t.text))
	tokens := t.count(start, end)
	if tokens <= limit {
		return append(pieces, piece{start: start, end: end, tokens: tokens, after: after})
	}

	// Hard cut: slice the word and its trailing whitespace into the longest
	// rune runs that fit, so every piece is measured as it will be emitted.
	pos := start
	for pos < end {
		cut := t.fit(pos, end, limit)
		rank := boundaryNone
		switch {
		case cut == end:
			rank = after
		case cut >= wordEnd:
			rank = boundarySpace
		}
		pieces = append(pieces, piece{start: pos, end: cut, tokens: t.count(pos, cut), after: rank})
		pos = cut
	}
	return pieces
}

// fit returns the largest rune-aligned offset in (pos, end] such that
// text[pos:offset] fits in limit tokens, taking at least one rune.
func (t *tokenizedText) fit(pos, end, limit int) int {
	var offsets []int
	for i := pos; i < end; {
		_, size := utf8.DecodeRuneInString(t.text[i:])
		i += size
		offsets = append(offsets, i)
	}
	lo, hi := 0, len(offsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if t.count(pos, offsets[mid]) <= limit {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return offsets[lo]
}

func classify(word, space string, atEnd bool) boundary {
	switch {
	case atEnd || strings.Count(space, "\n") >= 2:
		return boundaryParagraph
	case space == "":
		return boundaryNone
	case endsSentence(word):
		return boundarySentence
	default:
		return boundarySpace
	}
}

func endsSentence(word string) bool {
	word = strings.TrimRight(word, "\"')]}»”’")
	if word == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(word)
	return r == '.' || r == '!' || r == '?' || r == '…'
}
