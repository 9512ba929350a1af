package starforce

// Histogram is the bucket counts of one metric.
// Bucket i covers [Edges[i], Edges[i+1]); the last bucket includes Max.
type Histogram struct {
	Metric Metric
	Min    int64
	Max    int64
	Width  float64
	Edges  []float64
	Counts []int
}

func buildHistogram(m Metric, xs []int64, bins int) (Histogram, error) {
	h := Histogram{Metric: m}
	if len(xs) == 0 {
		return h, nil
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	span := hi - lo
	if int64(bins) > span {
		bins = int(span)
	}
	if bins < 1 {
		bins = 1
	}

	h.Min, h.Max = lo, hi
	h.Width = float64(span) / float64(bins)
	h.Edges = make([]float64, bins+1)
	for i := range h.Edges {
		h.Edges[i] = float64(lo) + float64(i)*h.Width
	}
	h.Edges[bins] = float64(hi)

	h.Counts = make([]int, bins)
	for _, x := range xs {
		idx := 0
		if h.Width > 0 {
			idx = int(float64(x-lo) / h.Width)
		}
		if idx >= bins {
			idx = bins - 1
		}
		h.Counts[idx]++
	}
	return h, nil
}
