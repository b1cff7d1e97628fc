package threads

import (
	"math"
	"strings"

	"github.com/viterin/vek/vek32"
)

// Cosine compares two embeddings. Zero-length, mismatched or degenerate
// vectors score 0; vek returns NaN for zero vectors and we want 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	sim := vek32.CosineSimilarity(a, b)
	if math.IsNaN(float64(sim)) {
		return 0
	}
	return float64(sim)
}

// NormalizeName lowercases and collapses whitespace so name comparison is
// formatting-independent.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NameSimilarity is 1 - editDistance/maxLen over normalized names.
func NameSimilarity(a, b string) float64 {
	a = NormalizeName(a)
	b = NormalizeName(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
