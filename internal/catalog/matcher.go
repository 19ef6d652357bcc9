package catalog

import (
	"strings"
	"unicode"
)

// Token-overlap similarity between component descriptions. Deterministic:
// same store state and same input always rank the same way; ties keep
// insertion order so few-shot context stays stable across runs.

// tokenize lowercases s and splits it on anything that is not a letter,
// digit, or '+' ('+' survives for pole notations like "2P+T+N").
func tokenize(s string) []string {
	lower := strings.ToLower(s)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+'
	})
}

// tokenSet builds a normalized token set, dropping stopwords and
// single-character noise.
func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenize(s) {
		if len(tok) < 2 || isStopword(tok) {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

// overlapScore returns the Jaccard similarity of the two token sets.
func overlapScore(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// isStopword filters words too common to signal similarity between
// component descriptions.
func isStopword(word string) bool {
	common := map[string]bool{
		"the": true, "a": true, "an": true, "of": true, "for": true,
		"with": true, "and": true, "or": true, "to": true, "in": true,
		"on": true, "at": true, "by": true, "new": true, "model": true,
		"type": true, "ref": true, "reference": true, "item": true,
		"de": true, "da": true, "do": true, "com": true, "para": true,
		"novo": true, "modelo": true, "referencia": true,
	}
	return common[word]
}
