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


package summarize

import (
	"slices"
	"strings"

	"github.com/poiesic/docproc/core"
)

type scoredSentence struct {
	index int
	text  string
	words int
	score float64
}

// Extractive builds a summary from the highest scoring sentences of text.
// Sentences are scored by position and by the mean document frequency of
// their content words; selected sentences are emitted in document order and
// selection stops once targetWords is reached, so the target is exceeded by
// at most one sentence.
func Extractive(text string, targetWords int, positionWeight, frequencyWeight float64) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}

	total := 0
	scored := make([]scoredSentence, len(sentences))
	for i, s := range sentences {
		words := len(strings.Fields(s))
		total += words
		scored[i] = scoredSentence{index: i, text: s, words: words}
	}
	if total <= targetWords {
		return strings.Join(sentences, " ")
	}

	freq := make(map[string]int)
	terms := make([][]string, len(sentences))
	for i, s := range sentences {
		terms[i] = core.Terms(s)
		for _, t := range terms[i] {
			freq[t]++
		}
	}

	raw := make([]float64, len(sentences))
	maxRaw := 0.0
	for i, ts := range terms {
		if len(ts) == 0 {
			continue
		}
		sum := 0
		for _, t := range ts {
			sum += freq[t]
		}
		raw[i] = float64(sum) / float64(len(ts))
		maxRaw = max(maxRaw, raw[i])
	}

	n := float64(len(sentences))
	for i := range scored {
		position := 1 - float64(i)/n
		frequency := 0.0
		if maxRaw > 0 {
			frequency = raw[i] / maxRaw
		}
		scored[i].score = positionWeight*position + frequencyWeight*frequency
	}

	ranked := slices.Clone(scored)
	slices.SortStableFunc(ranked, func(a, b scoredSentence) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})

	var picked []scoredSentence
	words := 0
	for _, s := range ranked {
		if words >= targetWords {
			break
		}
		picked = append(picked, s)
		words += s.words
	}
	slices.SortFunc(picked, func(a, b scoredSentence) int { return a.index - b.index })

	parts := make([]string, len(picked))
	for i, s := range picked {
		parts[i] = s.text
	}
	return strings.Join(parts, " ")
}

func (e *Engine) extractive(text string, target int) *core.Summary {
	return &core.Summary{
		Text:        Extractive(text, target, e.cfg.PositionWeight, e.cfg.FrequencyWeight),
		TargetWords: target,
		Fallback:    true,
		Method:      core.SummaryMethodExtractive,
	}
}
