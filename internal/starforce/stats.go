package starforce

import (
	"math"
)

// Stats summarizes one metric.
type Stats struct {
	Mean   float64
	Var    float64
	StdDev float64
	Min    int64
	Max    int64
	P50    int64
	P90    int64
	P99    int64
}

// calcStats computes mean/variance/percentiles for sorted integer samples.
func calcStats(sorted []int64) Stats {
	n := len(sorted)
	if n == 0 {
		return Stats{}
	}
	// mean
	var sum float64
	for _, v := range sorted {
		sum += float64(v)
	}
	mean := sum / float64(n)

	// variance (population)
	var acc float64
	for _, v := range sorted {
		d := float64(v) - mean
		acc += d * d
	}
	variance := acc / float64(n)

	rank := func(p float64) int64 {
		idx := int(float64(n) * p)
		if idx > n-1 {
			idx = n - 1
		}
		return sorted[idx]
	}

	return Stats{
		Mean:   mean,
		Var:    variance,
		StdDev: math.Sqrt(variance),
		Min:    sorted[0],
		Max:    sorted[n-1],
		P50:    rank(0.50),
		P90:    rank(0.90),
		P99:    rank(0.99),
	}
}
