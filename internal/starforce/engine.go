package starforce

// TrialResult is the accumulated totals of one walk from start to end.
type TrialResult struct {
	Cost     int64
	Attempts int64
	Booms    int64
}

// RunTrial performs one random walk from start to end under t.
// Each attempt charges the cost of the level it was made at. A Success moves
// up one level, a Maintain stays (or drops one level where the ruleset says
// failures drop), and a Boom moves to the ruleset's boom target. Chance time
// grants a success without consuming a draw.
//
// The caller guarantees 0 <= start < end <= t.Levels(); Simulate checks this.
// Given the same draws from rng, the result is identical.
func RunTrial(t *Table, start, end int, rng RandomSource) TrialResult {
	var res TrialResult
	ct := chanceTime{Threshold: t.chanceTime}
	level := start
	for level < end {
		res.Cost += t.costs[level]
		res.Attempts++

		if ct.due() {
			ct.reset()
			level++
			continue
		}

		switch t.probs[level].Classify(rng.Float64()) {
		case Success:
			ct.reset()
			level++
		case Maintain:
			if t.failDrops[level] {
				ct.dropped()
				level = t.failTo[level]
			} else {
				ct.reset()
			}
		default:
			res.Booms++
			ct.reset()
			level = t.boomTo[level]
		}
	}
	return res
}
