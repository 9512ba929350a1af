package starforce

import "fmt"

// Table is a Ruleset compiled for one item level: flat slices indexed by level,
// read-only after Compile and shared by every worker of a run.
type Table struct {
	probs      []OutcomeProbabilities
	costs      []int64
	failTo     []int
	failDrops  []bool
	boomTo     []int
	chanceTime int
	itemLevel  int
}

// Compile resolves costs and transition targets for itemLevel.
func (rs *Ruleset) Compile(itemLevel int) (*Table, error) {
	if rs == nil || len(rs.Levels) == 0 {
		return nil, fmt.Errorf("%w: no levels defined", ErrRuleset)
	}
	n := len(rs.Levels)
	t := &Table{
		probs:      make([]OutcomeProbabilities, n),
		costs:      make([]int64, n),
		failTo:     make([]int, n),
		failDrops:  make([]bool, n),
		boomTo:     make([]int, n),
		chanceTime: rs.ChanceTime,
		itemLevel:  itemLevel,
	}
	for lvl, row := range rs.Levels {
		p, err := rs.Probabilities(lvl)
		if err != nil {
			return nil, err
		}
		cost, err := rs.Cost(lvl, itemLevel)
		if err != nil {
			return nil, err
		}
		t.probs[lvl] = p
		t.costs[lvl] = cost
		t.failDrops[lvl] = row.FailDrops && lvl > 0
		t.failTo[lvl] = lvl
		if t.failDrops[lvl] {
			t.failTo[lvl] = lvl - 1
		}
		t.boomTo[lvl] = lvl
		if row.Boom > 0 {
			t.boomTo[lvl] = row.OnBoom.Target(lvl)
		}
	}
	return t, nil
}

// Levels is the number of rows in the table.
func (t *Table) Levels() int { return len(t.probs) }

// ItemLevel is the item level the costs were computed for.
func (t *Table) ItemLevel() int { return t.itemLevel }
