package starforce

import (
	"fmt"
	"math"
	"strings"
)

// Fit is a fitted parametric model.
type Fit struct {
	Model  string
	Params map[string]float64
}

// Fitter estimates a parametric distribution from samples.
type Fitter interface {
	Name() string
	Fit(values []int64) (Fit, error)
}

// NormalFitter fits N(mu, sigma) by the method of moments.
type NormalFitter struct{}

func (NormalFitter) Name() string { return "normal" }

func (NormalFitter) Fit(values []int64) (Fit, error) {
	if len(values) == 0 {
		return Fit{}, fmt.Errorf("%w: no samples to fit", ErrInvalidArgument)
	}
	xs := make([]float64, len(values))
	for i, v := range values {
		xs[i] = float64(v)
	}
	mu, sigma := moments(xs)
	return Fit{Model: "normal", Params: map[string]float64{"mu": mu, "sigma": sigma}}, nil
}

// LogNormalFitter fits a log-normal by the moments of log(x).
// Every sample must be positive.
type LogNormalFitter struct{}

func (LogNormalFitter) Name() string { return "lognormal" }

func (LogNormalFitter) Fit(values []int64) (Fit, error) {
	if len(values) == 0 {
		return Fit{}, fmt.Errorf("%w: no samples to fit", ErrInvalidArgument)
	}
	xs := make([]float64, len(values))
	for i, v := range values {
		if v <= 0 {
			return Fit{}, fmt.Errorf("%w: lognormal needs positive samples, found %d", ErrInvalidArgument, v)
		}
		xs[i] = math.Log(float64(v))
	}
	mu, sigma := moments(xs)
	return Fit{Model: "lognormal", Params: map[string]float64{"mu": mu, "sigma": sigma}}, nil
}

func moments(xs []float64) (mean, stddev float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))
	var acc float64
	for _, x := range xs {
		d := x - mean
		acc += d * d
	}
	return mean, math.Sqrt(acc / float64(len(xs)))
}

// FitterByName resolves "normal" or "lognormal".
func FitterByName(name string) (Fitter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "normal":
		return NormalFitter{}, nil
	case "lognormal", "log-normal":
		return LogNormalFitter{}, nil
	}
	return nil, fmt.Errorf("%w: unknown fit model %q", ErrInvalidArgument, name)
}
