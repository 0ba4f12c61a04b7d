package factors

import (
	"math"
	"strings"
	"unicode"
)

// tokenVector is a normalized term-frequency vector over lower-cased tokens.
type tokenVector map[string]float64

// tokenize splits text into lower-cased alphanumeric tokens. Single-letter
// tokens are dropped; they carry no matching signal and inflate similarity
// between unrelated records.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// newTokenVector builds a unit-length term-frequency vector from text.
// Returns nil for text with no usable tokens.
func newTokenVector(text string) tokenVector {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	v := make(tokenVector, len(tokens))
	for _, tok := range tokens {
		v[tok]++
	}

	var norm float64
	for _, weight := range v {
		norm += weight * weight
	}
	norm = math.Sqrt(norm)
	for tok := range v {
		v[tok] /= norm
	}
	return v
}

// cosine returns the cosine similarity between two unit vectors, in [0,1].
func cosine(a, b tokenVector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// Iterate the smaller vector.
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for tok, weight := range a {
		dot += weight * b[tok]
	}
	// Clamp rounding noise; both vectors are unit length.
	return math.Min(dot, 1)
}
