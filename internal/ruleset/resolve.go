// resolve.go
package ruleset

import (
	"github.com/xtding233/starforce/internal/starforce"
)

// Overrides carries per-run tweaks on top of a loaded ruleset
// (e.g. CLI flags). Nil fields keep the file's value.
type Overrides struct {
	ChanceTime *int
	BoomFloor  *int
}

// Resolve normalizes a validated RawRuleset into the engine's Ruleset.
func Resolve(raw RawRuleset, o Overrides) (*starforce.Ruleset, error) {
	if o.ChanceTime != nil {
		ct := *o.ChanceTime
		raw.ChanceTime = &ct
	}
	if o.BoomFloor != nil {
		floor := *o.BoomFloor
		raw.Boom = &BoomConfig{Mode: string(starforce.BoomToFloor), Floor: &floor}
		levels := make([]LevelConfig, len(raw.Levels))
		copy(levels, raw.Levels)
		for i := range levels {
			levels[i].OnBoom = nil
		}
		raw.Levels = levels
	}
	if err := ValidateRaw(raw); err != nil {
		return nil, err
	}

	rs := &starforce.Ruleset{
		Name:   raw.Name,
		Levels: make([]starforce.LevelRule, len(raw.Levels)),
		Pricing: starforce.CostRule{
			Multiplier: 1,
		},
	}
	if raw.ChanceTime != nil {
		rs.ChanceTime = *raw.ChanceTime
	}
	if raw.Cost.Multiplier != nil {
		rs.Pricing.Multiplier = *raw.Cost.Multiplier
	}
	if raw.Cost.Base != nil {
		rs.Pricing.Base = *raw.Cost.Base
	}
	for _, t := range raw.Cost.Tiers {
		rs.Pricing.Tiers = append(rs.Pricing.Tiers, starforce.CostTier{
			From:     t.From,
			To:       t.To,
			Exponent: t.Exponent,
			Divisor:  t.Divisor,
		})
	}

	defaultDrops := raw.FailDrops != nil && *raw.FailDrops
	for i, lv := range raw.Levels {
		rule := starforce.LevelRule{
			OutcomeProbabilities: starforce.OutcomeProbabilities{
				Success:  lv.Success,
				Maintain: lv.Maintain,
				Boom:     lv.Boom,
			},
			FailDrops: defaultDrops,
		}
		if lv.FailDrops != nil {
			rule.FailDrops = *lv.FailDrops
		}
		switch {
		case lv.OnBoom != nil:
			rule.OnBoom = boomPolicy(*lv.OnBoom)
		case raw.Boom != nil:
			rule.OnBoom = boomPolicy(*raw.Boom)
		}
		rs.Levels[i] = rule
	}
	return rs, nil
}

func boomPolicy(b BoomConfig) starforce.BoomPolicy {
	p := starforce.BoomPolicy{Kind: starforce.BoomKind(b.Mode)}
	if b.Floor != nil {
		p.Floor = *b.Floor
	}
	if b.Drop != nil {
		p.Drop = *b.Drop
	}
	return p
}
