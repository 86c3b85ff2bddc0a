package index

import "github.com/poiesic/docproc/core"

// Score rates how well text matches the query terms. It returns 0 when no
// term matches, or when matchAll is set and any term is missing. Otherwise
// the score is the share of distinct query terms present plus a small bonus
// that grows with repeated occurrences.
func Score(text string, query []string, matchAll bool) float64 {
	if len(query) == 0 {
		return 0
	}

	counts := make(map[string]int)
	for _, t := range core.Terms(text) {
		counts[t]++
	}

	distinct := make(map[string]bool, len(query))
	matched := 0
	bonus := 0.0
	for _, q := range query {
		if distinct[q] {
			continue
		}
		distinct[q] = true
		if n := counts[q]; n > 0 {
			matched++
			bonus += float64(n) / float64(n+1)
		} else if matchAll {
			return 0
		}
	}
	if matched == 0 {
		return 0
	}
	return float64(matched)/float64(len(distinct)) + 0.1*bonus/float64(len(distinct))
}
