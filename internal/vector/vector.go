// Package vector implements the lexical pseudo-embedding used for rule retrieval.
//
// The fingerprint is not semantic: it maps the first Width runes of a text to
// their Unicode code points. It exists to give retrieval a reproducible stand-in
// for an embedding model.
package vector

import "math"

// Width is the number of dimensions of every fingerprint.
const Width = 10

const padding = ' '

// Vectorize returns the Width-dimensional fingerprint of text. Texts shorter
// than Width runes are padded with spaces, so "" and "          " share a vector.
func Vectorize(text string) []float64 {
	vec := make([]float64, 0, Width)
	for _, r := range text {
		if len(vec) == Width {
			break
		}
		vec = append(vec, float64(r))
	}
	for len(vec) < Width {
		vec = append(vec, float64(padding))
	}
	return vec
}

// L1 returns the Manhattan distance between a and b. The boolean is false when
// the vectors cannot be compared (empty or of different lengths).
func L1(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum, true
}
