package starforce

import (
	"fmt"
	"math"
	"strings"
)

// Item levels accepted by the cost formula.
const (
	MinItemLevel = 0
	MaxItemLevel = 200
)

// BoomKind selects where a boom sends the item.
type BoomKind string

const (
	BoomToFloor BoomKind = "floor" // reset to a fixed level
	BoomDropBy  BoomKind = "drop"  // fall a fixed number of levels
)

// BoomPolicy is the level a boom leaves the item at, owned by the ruleset.
type BoomPolicy struct {
	Kind  BoomKind
	Floor int // BoomToFloor target
	Drop  int // BoomDropBy distance
}

// Target returns the level after a boom at level.
func (b BoomPolicy) Target(level int) int {
	if b.Kind == BoomDropBy {
		t := level - b.Drop
		if t < 0 {
			t = 0
		}
		return t
	}
	return b.Floor
}

// LevelRule is one row of the ruleset.
type LevelRule struct {
	OutcomeProbabilities

	// FailDrops makes a Maintain-class outcome drop one level instead of staying.
	FailDrops bool
	OnBoom    BoomPolicy
}

// CostTier applies the cost formula to levels From..To inclusive.
type CostTier struct {
	From, To int
	Exponent float64
	Divisor  float64
}

// CostRule computes the per-attempt cost:
//
//	Multiplier * floor(itemLevel^3 * (level+1)^Exponent / Divisor + Base)
type CostRule struct {
	Multiplier int64
	Base       float64
	Tiers      []CostTier
}

// Ruleset is the injected probability and cost table.
// Levels[i] describes attempts made at level i; MaxLevel() is the cap.
type Ruleset struct {
	Name       string
	Levels     []LevelRule
	ChanceTime int // consecutive drops before a guaranteed success; 0 disables
	Pricing    CostRule
}

// MaxLevel is the highest level an item can reach.
func (rs *Ruleset) MaxLevel() int { return len(rs.Levels) }

// Probabilities returns the outcome triple of level.
func (rs *Ruleset) Probabilities(level int) (OutcomeProbabilities, error) {
	if level < 0 || level >= len(rs.Levels) {
		return OutcomeProbabilities{}, fmt.Errorf("%w: no probability row for level %d", ErrRuleset, level)
	}
	return rs.Levels[level].OutcomeProbabilities, nil
}

// Cost returns the price of one attempt at level for an item of itemLevel.
func (rs *Ruleset) Cost(level, itemLevel int) (int64, error) {
	tier, ok := rs.costTier(level)
	if !ok {
		return 0, fmt.Errorf("%w: no cost tier covers level %d", ErrRuleset, level)
	}
	if tier.Divisor <= 0 {
		return 0, fmt.Errorf("%w: cost tier %d-%d has divisor %v", ErrRuleset, tier.From, tier.To, tier.Divisor)
	}
	lvl := float64(itemLevel)
	base := lvl*lvl*lvl*math.Pow(float64(level+1), tier.Exponent)/tier.Divisor + rs.Pricing.Base
	cost := rs.Pricing.Multiplier * int64(math.Floor(base))
	if cost < 0 {
		return 0, fmt.Errorf("%w: negative cost %d at level %d", ErrRuleset, cost, level)
	}
	return cost, nil
}

func (rs *Ruleset) costTier(level int) (CostTier, bool) {
	for _, t := range rs.Pricing.Tiers {
		if level >= t.From && level <= t.To {
			return t, true
		}
	}
	return CostTier{}, false
}

// Validate checks the whole table for itemLevel, then walks every level
// reachable from start and makes sure a walk to end can always finish.
func (rs *Ruleset) Validate(start, end, itemLevel int) error {
	if rs == nil {
		return fmt.Errorf("%w: no ruleset", ErrRuleset)
	}
	var errs []string
	if len(rs.Levels) == 0 {
		errs = append(errs, "no levels defined")
	}
	if rs.ChanceTime < 0 {
		errs = append(errs, "chance time must be >= 0")
	}
	for lvl, row := range rs.Levels {
		if !validateRow(row.OutcomeProbabilities) {
			errs = append(errs, fmt.Sprintf("level %d probabilities (%v, %v, %v) must each be in [0,1] and sum to 1",
				lvl, row.Success, row.Maintain, row.Boom))
		}
		if row.Boom > 0 {
			switch row.OnBoom.Kind {
			case BoomToFloor, BoomDropBy:
			default:
				errs = append(errs, fmt.Sprintf("level %d boom policy %q must be one of: floor, drop", lvl, row.OnBoom.Kind))
			}
			if row.OnBoom.Kind == BoomDropBy && row.OnBoom.Drop < 0 {
				errs = append(errs, fmt.Sprintf("level %d boom drop must be >= 0", lvl))
			}
			if t := row.OnBoom.Target(lvl); t < 0 || t >= len(rs.Levels) {
				errs = append(errs, fmt.Sprintf("level %d boom target %d is outside the table", lvl, t))
			} else if t > lvl {
				// booms never advance the item
				errs = append(errs, fmt.Sprintf("level %d boom target %d is above the level", lvl, t))
			}
		}
		if _, err := rs.Cost(lvl, itemLevel); err != nil {
			errs = append(errs, strings.TrimPrefix(err.Error(), ErrRuleset.Error()+": "))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrRuleset, strings.Join(errs, "; "))
	}

	if start < 0 || end > len(rs.Levels) || start >= end {
		return fmt.Errorf("%w: walk %d -> %d is outside levels 0..%d", ErrInvalidArgument, start, end, len(rs.Levels))
	}
	for _, lvl := range rs.reachable(start, end) {
		if rs.Levels[lvl].Success <= 0 {
			return fmt.Errorf("%w: level %d is reachable from %d but can never succeed", ErrRuleset, lvl, start)
		}
	}
	return nil
}

// reachable lists the levels below end that a walk from start can visit.
func (rs *Ruleset) reachable(start, end int) []int {
	seen := make([]bool, len(rs.Levels))
	queue := []int{start}
	seen[start] = true
	var out []int
	for len(queue) > 0 {
		lvl := queue[0]
		queue = queue[1:]
		out = append(out, lvl)
		row := rs.Levels[lvl]

		var next []int
		if row.Success > 0 || rs.ChanceTime > 0 {
			next = append(next, lvl+1)
		}
		if row.Maintain > 0 && row.FailDrops && lvl > 0 {
			next = append(next, lvl-1)
		}
		if row.Boom > 0 {
			next = append(next, row.OnBoom.Target(lvl))
		}
		for _, n := range next {
			if n >= end || n < 0 || seen[n] {
				continue
			}
			seen[n] = true
			queue = append(queue, n)
		}
	}
	return out
}
