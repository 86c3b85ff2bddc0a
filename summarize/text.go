package summarize

import (
	"strings"
	"unicode"
)

// splitSentences breaks text at terminal punctuation followed by whitespace
// and at paragraph breaks. Empty sentences are dropped.
func splitSentences(text string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(text)
	flush := func(end int) {
		if s := strings.Join(strings.Fields(string(runes[start:end])), " "); s != "" {
			out = append(out, s)
		}
		start = end
	}

	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; {
		case r == '\n' && i+1 < len(runes) && runes[i+1] == '\n':
			flush(i + 1)
		case r == '.' || r == '!' || r == '?':
			j := i + 1
			for j < len(runes) && strings.ContainsRune(`.!?"')]`, runes[j]) {
				j++
			}
			if j == len(runes) || unicode.IsSpace(runes[j]) {
				flush(j)
				i = j - 1
			}
		}
	}
	flush(len(runes))
	return out
}
