package ruleset

import (
	"fmt"
	"math"
	"strings"

	"github.com/xtding233/starforce/internal/starforce"
)

// ValidateRaw checks semantic constraints of a RawRuleset.
func ValidateRaw(cfg RawRuleset) error {
	var errs []string

	if len(cfg.Levels) == 0 {
		errs = append(errs, "levels must not be empty")
	}
	if cfg.ChanceTime != nil && *cfg.ChanceTime < 0 {
		errs = append(errs, "chance_time must be >= 0")
	}
	if cfg.Boom != nil {
		errs = append(errs, validateBoom("boom", *cfg.Boom, len(cfg.Levels))...)
	}

	for i, lv := range cfg.Levels {
		probs := []struct {
			name string
			p    float64
		}{{"success", lv.Success}, {"maintain", lv.Maintain}, {"boom", lv.Boom}}
		for _, pr := range probs {
			if math.IsNaN(pr.p) || pr.p < 0 || pr.p > 1 {
				errs = append(errs, fmt.Sprintf("levels[%d].%s must be in [0,1]", i, pr.name))
			}
		}
		if sum := lv.Success + lv.Maintain + lv.Boom; math.Abs(sum-1) > 1e-6 {
			errs = append(errs, fmt.Sprintf("levels[%d] probabilities sum to %v, want 1", i, sum))
		}
		if lv.OnBoom != nil {
			errs = append(errs, validateBoom(fmt.Sprintf("levels[%d].on_boom", i), *lv.OnBoom, len(cfg.Levels))...)
		}
		if lv.Boom > 0 && lv.OnBoom == nil && cfg.Boom == nil {
			errs = append(errs, fmt.Sprintf("levels[%d] can boom but no boom policy is set", i))
		}
		if lv.Boom > 0 {
			policy := cfg.Boom
			if lv.OnBoom != nil {
				policy = lv.OnBoom
			}
			if t, ok := boomTarget(policy, i); ok && t > i {
				errs = append(errs, fmt.Sprintf("levels[%d] boom target %d is above the level", i, t))
			}
		}
	}

	// cost
	if cfg.Cost == nil {
		errs = append(errs, "cost is required")
	} else {
		if cfg.Cost.Multiplier != nil && *cfg.Cost.Multiplier < 0 {
			errs = append(errs, "cost.multiplier must be >= 0")
		}
		if cfg.Cost.Base != nil && *cfg.Cost.Base < 0 {
			errs = append(errs, "cost.base must be >= 0")
		}
		covered := make([]bool, len(cfg.Levels))
		for i, t := range cfg.Cost.Tiers {
			if t.From > t.To {
				errs = append(errs, fmt.Sprintf("cost.tiers[%d] from %d is above to %d", i, t.From, t.To))
			}
			if t.Divisor <= 0 {
				errs = append(errs, fmt.Sprintf("cost.tiers[%d].divisor must be > 0", i))
			}
			for lvl := max(t.From, 0); lvl <= t.To && lvl < len(covered); lvl++ {
				covered[lvl] = true
			}
		}
		for lvl, ok := range covered {
			if !ok {
				errs = append(errs, fmt.Sprintf("no cost tier covers level %d", lvl))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: config validation failed: %s", starforce.ErrRuleset, strings.Join(errs, "; "))
	}
	return nil
}

func validateBoom(path string, b BoomConfig, levels int) []string {
	var errs []string
	switch b.Mode {
	case string(starforce.BoomToFloor):
		if b.Floor == nil {
			errs = append(errs, path+".floor is required for mode=floor")
		} else if *b.Floor < 0 || *b.Floor >= levels {
			errs = append(errs, fmt.Sprintf("%s.floor must be in [0,%d)", path, levels))
		}
	case string(starforce.BoomDropBy):
		if b.Drop == nil {
			errs = append(errs, path+".drop is required for mode=drop")
		} else if *b.Drop < 0 {
			errs = append(errs, path+".drop must be >= 0")
		}
	default:
		errs = append(errs, path+".mode must be one of: floor, drop")
	}
	return errs
}

// boomTarget resolves where a well-formed policy sends a boom at level.
func boomTarget(b *BoomConfig, level int) (int, bool) {
	if b == nil {
		return 0, false
	}
	switch {
	case b.Mode == string(starforce.BoomToFloor) && b.Floor != nil:
		return *b.Floor, true
	case b.Mode == string(starforce.BoomDropBy) && b.Drop != nil:
		return max(level-*b.Drop, 0), true
	}
	return 0, false
}
