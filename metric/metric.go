// Package metric derives similarity measures from sketch inner products.
package metric

import "math"

// Magnitude returns the length of a vector with the given squared length.
func Magnitude(squaredLength float64) float64 {
	return math.Sqrt(squaredLength)
}

// Cosine returns the cosine similarity of two vectors from their inner
// product and squared lengths. It is 0 if either vector has zero length.
// The result is clamped to [-1, 1] against rounding.
func Cosine(dot, lhsSquaredLength, rhsSquaredLength float64) float64 {
	magnitudeA := Magnitude(lhsSquaredLength)
	magnitudeB := Magnitude(rhsSquaredLength)

	// Avoid division by zero
	if magnitudeA == 0 || magnitudeB == 0 {
		return 0
	}

	return max(-1, min(1, dot/(magnitudeA*magnitudeB)))
}
