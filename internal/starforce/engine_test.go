package starforce_test

import (
	"testing"

	"github.com/xtding233/starforce/internal/ruleset"
	"github.com/xtding233/starforce/internal/starforce"
)

// scriptRNG replays fixed draws and fails the test when they run out.
type scriptRNG struct {
	t     *testing.T
	draws []float64
	used  int
}

func (s *scriptRNG) Float64() float64 {
	if s.used >= len(s.draws) {
		s.t.Fatalf("rng exhausted after %d draws", s.used)
	}
	u := s.draws[s.used]
	s.used++
	return u
}

func compileDefault(t *testing.T, itemLevel int) *starforce.Table {
	t.Helper()
	table, err := ruleset.Default().Compile(itemLevel)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return table
}

func TestRunTrialBoomResetsToTwelve(t *testing.T) {
	table := compileDefault(t, 150)
	// boom at 15, then four clean successes 12 -> 16
	rng := &scriptRNG{t: t, draws: []float64{0.999, 0, 0, 0, 0}}
	got := starforce.RunTrial(table, 15, 16, rng)
	if got.Attempts != 5 || got.Booms != 1 {
		t.Fatalf("got %+v; want attempts=5 booms=1", got)
	}
	if rng.used != 5 {
		t.Fatalf("used %d draws, want 5", rng.used)
	}
}

func TestRunTrialSafeguardHolds(t *testing.T) {
	table := compileDefault(t, 150)
	rng := &scriptRNG{t: t, draws: []float64{0.5, 0}}
	got := starforce.RunTrial(table, 15, 16, rng)
	if got.Attempts != 2 || got.Booms != 0 {
		t.Fatalf("maintain at 15 should hold the level; got %+v", got)
	}
}

func TestRunTrialFailureDrops(t *testing.T) {
	table := compileDefault(t, 150)
	// 16 -> 15 on failure, then 15 -> 16 -> 17
	rng := &scriptRNG{t: t, draws: []float64{0.5, 0, 0}}
	got := starforce.RunTrial(table, 16, 17, rng)
	if got.Attempts != 3 {
		t.Fatalf("attempts=%d, want 3", got.Attempts)
	}
}

func TestRunTrialChanceTime(t *testing.T) {
	row := starforce.LevelRule{
		OutcomeProbabilities: starforce.OutcomeProbabilities{Success: 0.5, Maintain: 0.5},
		FailDrops:            true,
	}
	rs := &starforce.Ruleset{
		Name:       "ct",
		Levels:     []starforce.LevelRule{row, row, row},
		ChanceTime: 2,
		Pricing: starforce.CostRule{
			Multiplier: 1,
			Base:       1,
			Tiers:      []starforce.CostTier{{From: 0, To: 2, Exponent: 1, Divisor: 1}},
		},
	}
	table, err := rs.Compile(0)
	if err != nil {
		t.Fatal(err)
	}
	// 2 -> 1 -> 0 (two drops), chance time 0 -> 1 without a draw, then 1 -> 2 -> 3
	rng := &scriptRNG{t: t, draws: []float64{0.9, 0.9, 0.1, 0.1}}
	got := starforce.RunTrial(table, 2, 3, rng)
	if got.Attempts != 5 {
		t.Fatalf("attempts=%d, want 5", got.Attempts)
	}
	if rng.used != 4 {
		t.Fatalf("chance time must not consume a draw; used %d", rng.used)
	}
	// item level 0 makes every attempt cost Base
	if got.Cost != 5 {
		t.Fatalf("cost=%d, want 5", got.Cost)
	}
}

func TestRunTrialReplay(t *testing.T) {
	table := compileDefault(t, 150)
	for seed := uint64(1); seed <= 20; seed++ {
		a := starforce.RunTrial(table, 12, 22, starforce.NewSeededRNG(seed))
		b := starforce.RunTrial(table, 12, 22, starforce.NewSeededRNG(seed))
		if a != b {
			t.Fatalf("seed %d: %+v != %+v", seed, a, b)
		}
		if a.Attempts < 10 {
			t.Fatalf("seed %d: attempts %d below the level gap", seed, a.Attempts)
		}
		if a.Booms > a.Attempts {
			t.Fatalf("seed %d: booms %d exceed attempts %d", seed, a.Booms, a.Attempts)
		}
	}
}

func TestClassify(t *testing.T) {
	p := starforce.OutcomeProbabilities{Success: 0.3, Maintain: 0.679, Boom: 0.021}
	cases := []struct {
		u    float64
		want starforce.Outcome
	}{
		{0, starforce.Success},
		{0.2999, starforce.Success},
		{0.3, starforce.Maintain},
		{0.978, starforce.Maintain},
		{0.98, starforce.Boom},
	}
	for _, c := range cases {
		if got := p.Classify(c.u); got != c.want {
			t.Fatalf("Classify(%v)=%v, want %v", c.u, got, c.want)
		}
	}
}

func TestClassifyShortRowNeverBooms(t *testing.T) {
	p := starforce.OutcomeProbabilities{Success: 0.3, Maintain: 0.6999995}
	if got := p.Classify(0.9999999); got != starforce.Maintain {
		t.Fatalf("Classify past the row sum=%v, want maintain", got)
	}
	if got := (starforce.OutcomeProbabilities{Success: 0.9999995}).Classify(0.9999999); got != starforce.Success {
		t.Fatalf("success-only row=%v, want success", got)
	}

	rs := &starforce.Ruleset{
		Name:   "short",
		Levels: []starforce.LevelRule{{OutcomeProbabilities: p}},
		Pricing: starforce.CostRule{
			Multiplier: 1,
			Base:       1,
			Tiers:      []starforce.CostTier{{From: 0, To: 0, Exponent: 1, Divisor: 1}},
		},
	}
	if err := rs.Validate(0, 1, 0); err != nil {
		t.Fatal(err)
	}
	table, err := rs.Compile(0)
	if err != nil {
		t.Fatal(err)
	}
	got := starforce.RunTrial(table, 0, 1, &scriptRNG{t: t, draws: []float64{0.9999999, 0}})
	if got.Attempts != 2 || got.Booms != 0 || got.Cost != 2 {
		t.Fatalf("got %+v; want attempts=2 booms=0 cost=2", got)
	}
}

func BenchmarkRunTrial(b *testing.B) {
	table, err := ruleset.Default().Compile(150)
	if err != nil {
		b.Fatal(err)
	}
	rng := starforce.NewSeededRNG(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		starforce.RunTrial(table, 15, 22, rng)
	}
}
