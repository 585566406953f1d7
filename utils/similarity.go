package utils

import (
	"regexp"
	"strings"
)

var punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// Sanitize lowercases s and strips everything except letters, digits and spaces.
// Runs of whitespace collapse to a single space.
func Sanitize(s string) string {
	s = punctuationRegex.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Similarity returns a score in [0, 1] based on the Levenshtein distance of the
// sanitized inputs. Two empty strings are considered identical.
func Similarity(a, b string) float64 {
	ra := []rune(Sanitize(a))
	rb := []rune(Sanitize(b))

	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1.0
	}

	return 1.0 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// levenshtein computes the edit distance with a two-row table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
