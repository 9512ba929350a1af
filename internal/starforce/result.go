package starforce

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Metric selects one of the three per-trial totals.
type Metric int

const (
	Costs Metric = iota
	Attempts
	Booms

	metricCount = 3
)

// Metrics lists every metric in display order.
var Metrics = []Metric{Costs, Attempts, Booms}

func (m Metric) String() string {
	switch m {
	case Costs:
		return "costs"
	case Attempts:
		return "attempts"
	case Booms:
		return "booms"
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

func (m Metric) valid() bool { return m >= Costs && m < metricCount }

// ParseMetric resolves a metric name. "taps" is accepted for attempts.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "costs", "cost":
		return Costs, nil
	case "attempts", "taps":
		return Attempts, nil
	case "booms":
		return Booms, nil
	}
	return 0, fmt.Errorf("%w: invalid metric %q, use one of costs, attempts or booms", ErrInvalidArgument, name)
}

// Meta describes the run a ResultSet came from.
type Meta struct {
	ID        string
	Start     int
	End       int
	ItemLevel int
	Ruleset   string
	Seed      uint64
	CreatedAt time.Time
}

// ResultSet holds the per-trial totals of one run as three independent
// sequences. Each sequence is sorted in place the first time an order-based
// query needs it; the trial-id correspondence between sequences is lost then.
// A ResultSet is safe for concurrent use.
type ResultSet struct {
	Meta

	mu      sync.Mutex
	metrics [metricCount][]int64
	sorted  [metricCount]bool
}

// NewResultSet splits results into the three metric sequences.
func NewResultSet(meta Meta, results []TrialResult) *ResultSet {
	rs := &ResultSet{Meta: meta}
	for m := range rs.metrics {
		rs.metrics[m] = make([]int64, len(results))
	}
	for i, r := range results {
		rs.metrics[Costs][i] = r.Cost
		rs.metrics[Attempts][i] = r.Attempts
		rs.metrics[Booms][i] = r.Booms
	}
	return rs
}

// NewResultSetFromColumns adopts already-split sequences, e.g. when loading a
// saved result. All three must have the same length.
func NewResultSetFromColumns(meta Meta, costs, attempts, booms []int64) (*ResultSet, error) {
	if len(costs) != len(attempts) || len(costs) != len(booms) {
		return nil, fmt.Errorf("%w: metric lengths differ (%d, %d, %d)", ErrInvalidArgument, len(costs), len(attempts), len(booms))
	}
	rs := &ResultSet{Meta: meta}
	rs.metrics[Costs] = costs
	rs.metrics[Attempts] = attempts
	rs.metrics[Booms] = booms
	for m := range rs.metrics {
		rs.sorted[m] = slices.IsSorted(rs.metrics[m])
	}
	return rs, nil
}

// Size is the number of trials.
func (r *ResultSet) Size() int { return len(r.metrics[Costs]) }

func (r *ResultSet) String() string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("<Starforce Result | %d -> %d | lvl%d | n=%d>", r.Start, r.End, r.ItemLevel, r.Size())
}

// Sort orders every metric ascending. Sorting twice is a no-op.
func (r *ResultSet) Sort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range Metrics {
		r.sortLocked(m)
	}
}

// Sorted reports whether metric m is currently sorted.
func (r *ResultSet) Sorted(m Metric) bool {
	if !m.valid() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted[m]
}

func (r *ResultSet) sortLocked(m Metric) []int64 {
	if !r.sorted[m] {
		slices.Sort(r.metrics[m])
		r.sorted[m] = true
	}
	return r.metrics[m]
}

// Values returns a copy of metric m in its current order.
func (r *ResultSet) Values(m Metric) ([]int64, error) {
	if !m.valid() {
		return nil, fmt.Errorf("%w: invalid metric %v", ErrInvalidArgument, m)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.metrics[m]), nil
}

// Percentile returns the nearest-rank value of metric m at p in [0,1]:
// index min(floor(n*p), n-1) of the sorted sequence.
func (r *ResultSet) Percentile(p float64, m Metric) (int64, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: percentile must be between 0 and 1, received %v", ErrInvalidArgument, p)
	}
	if !m.valid() {
		return 0, fmt.Errorf("%w: invalid metric %v", ErrInvalidArgument, m)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	xs := r.sortLocked(m)
	n := len(xs)
	if n == 0 {
		return 0, fmt.Errorf("%w: empty result set", ErrInvalidArgument)
	}
	idx := int(float64(n) * p)
	if idx > n-1 {
		idx = n - 1
	}
	return xs[idx], nil
}

// ProbabilityLess is the fraction of trials whose metric is strictly below c.
func (r *ResultSet) ProbabilityLess(c float64, m Metric) (float64, error) {
	return r.fraction(c, m, true)
}

// ProbabilityGreater is the fraction of trials whose metric is strictly above c.
// Together with ProbabilityLess it sums to 1 - P(X == c), not to 1.
func (r *ResultSet) ProbabilityGreater(c float64, m Metric) (float64, error) {
	return r.fraction(c, m, false)
}

func (r *ResultSet) fraction(c float64, m Metric, less bool) (float64, error) {
	if !m.valid() {
		return 0, fmt.Errorf("%w: invalid metric %v", ErrInvalidArgument, m)
	}
	if math.IsNaN(c) {
		return 0, fmt.Errorf("%w: comparand is NaN", ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	xs := r.metrics[m]
	n := len(xs)
	if n == 0 {
		return 0, nil
	}

	var count int
	switch {
	case r.sorted[m] && less:
		count = sort.Search(n, func(i int) bool { return float64(xs[i]) >= c })
	case r.sorted[m]:
		count = n - sort.Search(n, func(i int) bool { return float64(xs[i]) > c })
	default:
		for _, x := range xs {
			if (less && float64(x) < c) || (!less && float64(x) > c) {
				count++
			}
		}
	}
	return float64(count) / float64(n), nil
}

// Histogram bins metric m into at most bins equal-width buckets over [min, max].
// bins is clamped to floor(max-min) so no bucket is narrower than one unit;
// a degenerate range yields a single bucket.
func (r *ResultSet) Histogram(m Metric, bins int) (Histogram, error) {
	if bins < 1 {
		return Histogram{}, fmt.Errorf("%w: bins must be >= 1, received %d", ErrInvalidArgument, bins)
	}
	if !m.valid() {
		return Histogram{}, fmt.Errorf("%w: invalid metric %v", ErrInvalidArgument, m)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return buildHistogram(m, r.metrics[m], bins)
}

// Summary computes mean, variance and nearest-rank percentiles of metric m.
func (r *ResultSet) Summary(m Metric) (Stats, error) {
	if !m.valid() {
		return Stats{}, fmt.Errorf("%w: invalid metric %v", ErrInvalidArgument, m)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return calcStats(r.sortLocked(m)), nil
}

// Fit estimates a parametric model of metric m using f.
func (r *ResultSet) Fit(m Metric, f Fitter) (Fit, error) {
	if f == nil {
		return Fit{}, fmt.Errorf("%w: no fitter", ErrInvalidArgument)
	}
	xs, err := r.Values(m)
	if err != nil {
		return Fit{}, err
	}
	return f.Fit(xs)
}
