package blindspot

import (
	"strings"
	"unicode"
)

// tokenizeTitle lowercases a title, strips punctuation and splits it
// on whitespace into a token set.
func tokenizeTitle(title string) map[string]struct{} {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(b.String()) {
		tokens[tok] = struct{}{}
	}
	return tokens
}

// TitleSimilarity scores two article titles in [0, 1] using the
// Jaccard index over their token sets. Two empty token sets count as
// identical (1.0); exactly one empty set scores 0.
func TitleSimilarity(a, b string) float64 {
	tokensA := tokenizeTitle(a)
	tokensB := tokenizeTitle(b)

	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 1.0
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range tokensA {
		if _, ok := tokensB[tok]; ok {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection

	return float64(intersection) / float64(union)
}
