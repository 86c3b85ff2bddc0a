package core

import (
	"strings"
	"unicode"
)

// Stop words dropped from term lists
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "were": true, "to": true, "of": true, "and": true, "in": true,
	"that": true, "have": true, "has": true, "it": true, "its": true, "for": true,
	"not": true, "on": true, "with": true, "as": true, "you": true, "do": true,
	"at": true, "this": true, "but": true, "by": true, "from": true, "or": true,
	"we": true, "they": true, "he": true, "she": true, "i": true, "their": true,
	"which": true, "will": true, "can": true, "also": true, "these": true,
	"those": true, "than": true, "then": true, "there": true, "been": true,
}

// Terms splits text into words, lowercases, trims punctuation and symbols,
// and removes stop words. Sentence scoring and chunk search share it so both
// see the same vocabulary.
func Terms(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		}))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}
