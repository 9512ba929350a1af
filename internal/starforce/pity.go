package starforce

// chanceTime handles the "chance time" guarantee: after Threshold consecutive
// level-dropping failures, the next attempt is a guaranteed success.
// Threshold <= 0 disables it.
type chanceTime struct {
	Threshold int // consecutive drops before the guarantee
	Count     int // drops since the last non-dropping attempt
}

// due reports whether the next attempt is guaranteed.
func (c *chanceTime) due() bool {
	return c.Threshold > 0 && c.Count >= c.Threshold
}

func (c *chanceTime) dropped() { c.Count++ }

func (c *chanceTime) reset() { c.Count = 0 }
