package ui

import (
	"sort"
	"strings"

	"github.com/weftwork/weft/meta"
)

const (
	maxSuggestDistance = 3
	maxSuggestions     = 3
)

// Suggest returns up to three known names close to the target, nearest
// first. Qualified candidates also match on their short name, so "Usr"
// can suggest "acme::User".
func Suggest(target string, candidates []string) []string {
	type scored struct {
		value    string
		distance int
	}

	want := strings.ToLower(target)
	var matches []scored
	for _, candidate := range candidates {
		dist := levenshtein(want, strings.ToLower(candidate))
		if short := meta.ShortNameOf(candidate); short != candidate {
			if d := levenshtein(want, strings.ToLower(short)); d < dist {
				dist = d
			}
		}
		if dist <= maxSuggestDistance {
			matches = append(matches, scored{candidate, dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	out := make([]string, 0, maxSuggestions)
	for i := 0; i < len(matches) && i < maxSuggestions; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// levenshtein is the minimum number of single-character edits turning s1
// into s2, computed with a rolling pair of rows.
func levenshtein(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	cur := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		cur[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			cur[j] = prev[j] + 1
			if cur[j-1]+1 < cur[j] {
				cur[j] = cur[j-1] + 1
			}
			if prev[j-1]+cost < cur[j] {
				cur[j] = prev[j-1] + cost
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(s2)]
}
