// Package scoring holds the pure math behind guesses and ratings.
package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// NormalizedEditDistance is the case-insensitive Levenshtein distance between
// a and b divided by the longer length, both measured in code points.
// Two empty strings have distance 0.
func NormalizedEditDistance(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)

	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 0
	}

	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}

// Proximity scores how close guess is to secret in [0, 1]. It is exactly 1
// only on a case-insensitive match.
func Proximity(guess, secret string) float64 {
	return 1 - NormalizedEditDistance(guess, secret)
}
