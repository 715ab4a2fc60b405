// Package calc holds small arithmetic helpers.
package calc

import "math"

// Progress calculates the percentage for a given pair of numbers.
func Progress(done, total int) int {
	if total > 0 {
		return int(math.Round(float64(done) / float64(total) * 100))
	}

	return 0
}

// Min returns the smaller of a and b.
func Min(a, b int) int {
	if a < b {
		return a
	}

	return b
}
