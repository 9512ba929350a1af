package starforce

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
)

func columns(t *testing.T, costs, attempts, booms []int64) *ResultSet {
	t.Helper()
	rs, err := NewResultSetFromColumns(Meta{Start: 15, End: 21, ItemLevel: 150}, costs, attempts, booms)
	if err != nil {
		t.Fatal(err)
	}
	return rs
}

func TestPercentileNearestRank(t *testing.T) {
	rs := columns(t, []int64{5, 1, 4, 2, 3}, []int64{1, 1, 1, 1, 1}, []int64{0, 0, 0, 0, 0})
	cases := []struct {
		p    float64
		want int64
	}{{0, 1}, {0.5, 3}, {0.99, 5}, {1, 5}}
	for _, c := range cases {
		got, err := rs.Percentile(c.p, Costs)
		if err != nil {
			t.Fatal(err)
		}
		if got != c.want {
			t.Fatalf("Percentile(%v)=%d, want %d", c.p, got, c.want)
		}
	}
	if !rs.Sorted(Costs) {
		t.Fatalf("percentile query should leave costs sorted")
	}
	for _, p := range []float64{-0.1, 1.1, math.NaN()} {
		if _, err := rs.Percentile(p, Costs); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("Percentile(%v) err=%v", p, err)
		}
	}
	if _, err := rs.Percentile(0.5, Metric(9)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad metric err=%v", err)
	}
}

func TestPercentileEmpty(t *testing.T) {
	rs := NewResultSet(Meta{}, nil)
	if _, err := rs.Percentile(0.5, Costs); err == nil {
		t.Fatalf("empty result set must error")
	}
}

func TestProbabilityStrict(t *testing.T) {
	rs := columns(t, []int64{3, 2, 1, 2}, []int64{0, 0, 0, 0}, []int64{0, 0, 0, 0})
	check := func(label string) {
		less, err := rs.ProbabilityLess(2, Costs)
		if err != nil {
			t.Fatal(err)
		}
		greater, err := rs.ProbabilityGreater(2, Costs)
		if err != nil {
			t.Fatal(err)
		}
		if less != 0.25 || greater != 0.25 {
			t.Fatalf("%s: less=%v greater=%v, want 0.25 each", label, less, greater)
		}
		if less+greater > 1 {
			t.Fatalf("%s: less+greater=%v > 1", label, less+greater)
		}
		if got, _ := rs.ProbabilityLess(2.5, Costs); got != 0.75 {
			t.Fatalf("%s: ProbabilityLess(2.5)=%v", label, got)
		}
		if got, _ := rs.ProbabilityGreater(0, Costs); got != 1 {
			t.Fatalf("%s: ProbabilityGreater(0)=%v", label, got)
		}
	}
	check("unsorted")
	rs.Sort()
	check("sorted")

	if _, err := rs.ProbabilityLess(math.NaN(), Costs); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("NaN comparand err=%v", err)
	}
}

func TestSortIdempotent(t *testing.T) {
	rs := columns(t, []int64{9, 3, 7}, []int64{2, 1, 3}, []int64{1, 0, 0})
	rs.Sort()
	first, _ := rs.Values(Costs)
	rs.Sort()
	second, _ := rs.Values(Costs)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("second sort changed order: %v vs %v", first, second)
		}
	}
	if first[0] != 3 || first[2] != 9 {
		t.Fatalf("costs not ascending: %v", first)
	}
}

func TestHistogram(t *testing.T) {
	xs := []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	rs := columns(t, xs, xs, xs)

	h, err := rs.Histogram(Costs, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Counts) != 5 || len(h.Edges) != 6 {
		t.Fatalf("bins=%d edges=%d", len(h.Counts), len(h.Edges))
	}
	for i, c := range h.Counts {
		if c != 2 {
			t.Fatalf("bucket %d count=%d, want 2 (%v)", i, c, h.Counts)
		}
	}

	// more bins than the range clamps to floor(max-min)
	h, err = rs.Histogram(Attempts, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Counts) != 9 {
		t.Fatalf("clamped bins=%d, want 9", len(h.Counts))
	}
	var total int
	for _, c := range h.Counts {
		total += c
	}
	if total != len(xs) {
		t.Fatalf("histogram lost samples: %d", total)
	}

	flat := columns(t, []int64{4, 4, 4}, []int64{1, 1, 1}, []int64{0, 0, 0})
	h, err = flat.Histogram(Costs, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Counts) != 1 || h.Counts[0] != 3 {
		t.Fatalf("degenerate range: %v", h.Counts)
	}

	if _, err := rs.Histogram(Costs, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bins=0 err=%v", err)
	}
}

func TestSummary(t *testing.T) {
	rs := columns(t, []int64{2, 4, 4, 4, 5, 5, 7, 9}, make([]int64, 8), make([]int64, 8))
	s, err := rs.Summary(Costs)
	if err != nil {
		t.Fatal(err)
	}
	if s.Mean != 5 || s.StdDev != 2 || s.Min != 2 || s.Max != 9 {
		t.Fatalf("summary=%+v", s)
	}
	if s.P50 != 5 {
		t.Fatalf("P50=%d, want 5", s.P50)
	}
}

func TestFitters(t *testing.T) {
	rs := columns(t, []int64{2, 4, 4, 4, 5, 5, 7, 9}, []int64{1, 1, 1, 1, 1, 1, 1, 1}, make([]int64, 8))
	fit, err := rs.Fit(Costs, NormalFitter{})
	if err != nil {
		t.Fatal(err)
	}
	if fit.Model != "normal" || fit.Params["mu"] != 5 || fit.Params["sigma"] != 2 {
		t.Fatalf("normal fit=%+v", fit)
	}

	fit, err = rs.Fit(Attempts, LogNormalFitter{})
	if err != nil {
		t.Fatal(err)
	}
	if fit.Params["mu"] != 0 || fit.Params["sigma"] != 0 {
		t.Fatalf("lognormal of ones=%+v", fit)
	}
	if _, err := rs.Fit(Booms, LogNormalFitter{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("lognormal of zeros err=%v", err)
	}

	if f, err := FitterByName("log-normal"); err != nil || f.Name() != "lognormal" {
		t.Fatalf("FitterByName: %v %v", f, err)
	}
	if _, err := FitterByName("gamma"); err == nil {
		t.Fatalf("unknown model must error")
	}
}

func TestParseMetric(t *testing.T) {
	cases := map[string]Metric{"costs": Costs, "Cost": Costs, "attempts": Attempts, "taps": Attempts, " booms ": Booms}
	for in, want := range cases {
		got, err := ParseMetric(in)
		if err != nil || got != want {
			t.Fatalf("ParseMetric(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseMetric("meso"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("unknown metric err=%v", err)
	}
}

func TestOverview(t *testing.T) {
	rs := columns(t, []int64{1234567, 2000000, 999}, []int64{6, 8, 7}, []int64{0, 1, 0})
	out, err := rs.Overview()
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if lines[0] != "<Starforce Result | 15 -> 21 | lvl150 | n=3>" {
		t.Fatalf("header=%q", lines[0])
	}
	if lines[1] != "PERCENTILES" || lines[2] != "-----------" {
		t.Fatalf("title lines=%q %q", lines[1], lines[2])
	}
	if len(lines) != 3+len(overviewPercents) {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[3], "0%  |") || !strings.HasPrefix(lines[len(lines)-1], "99% |") {
		t.Fatalf("row labels: %q / %q", lines[3], lines[len(lines)-1])
	}
	if !strings.Contains(out, "1,234,567") {
		t.Fatalf("costs should be comma grouped:\n%s", out)
	}

	if _, err := NewResultSet(Meta{}, nil).Overview(); err == nil {
		t.Fatalf("empty overview must error")
	}
}

func TestNewResultSetFromColumnsLengthMismatch(t *testing.T) {
	if _, err := NewResultSetFromColumns(Meta{}, []int64{1}, []int64{1, 2}, []int64{0}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err=%v", err)
	}
}

func TestConcurrentQueries(t *testing.T) {
	xs := make([]int64, 1000)
	for i := range xs {
		xs[i] = int64(len(xs) - i)
	}
	rs := columns(t, xs, append([]int64(nil), xs...), make([]int64, len(xs)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := rs.Percentile(float64(i)/8, Costs); err != nil {
				t.Error(err)
			}
			if _, err := rs.ProbabilityLess(500, Attempts); err != nil {
				t.Error(err)
			}
			if _, err := rs.Histogram(Costs, 10); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	if got, _ := rs.Percentile(0, Costs); got != 1 {
		t.Fatalf("min=%d", got)
	}
}
