// Package stats computes descriptive and group statistics over the
// reconciled lookup bundle. Every function is pure and total: empty or
// degenerate input yields defined zero values, never NaN and never a
// panic.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the middle value of the distribution, averaging the
// two central values for even-length input. 0 for an empty slice.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := sortedCopy(values)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// PopStdDev returns the population standard deviation (divisor N, not
// N-1). 0 for an empty slice.
func PopStdDev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n))
}

// Quantile returns the q-th quantile (q in [0,1]) using linear
// interpolation between closest ranks. 0 for an empty slice; q is
// clamped to [0,1].
func Quantile(values []float64, q float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if q <= 0 {
		q = 0
	} else if q >= 1 {
		q = 1
	}
	sorted := sortedCopy(values)
	pos := q * float64(n-1)
	lower := int(math.Floor(pos))
	if lower >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}

// Skewness returns Pearson's second skewness coefficient,
// 3*(mean-median)/stddev. 0 when the standard deviation is 0.
func Skewness(values []float64) float64 {
	sd := PopStdDev(values)
	if sd == 0 {
		return 0
	}
	return 3 * (Mean(values) - Median(values)) / sd
}

func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}
