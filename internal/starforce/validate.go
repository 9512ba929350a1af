package starforce

import (
	"math"
)

// probTolerance is how far a probability row may drift from summing to 1.
const probTolerance = 1e-6

func validateProb(p float64) bool {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return false
	}
	return p >= 0 && p <= 1
}

func validateRow(p OutcomeProbabilities) bool {
	if !validateProb(p.Success) || !validateProb(p.Maintain) || !validateProb(p.Boom) {
		return false
	}
	return math.Abs(p.Success+p.Maintain+p.Boom-1) <= probTolerance
}
