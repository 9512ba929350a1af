// types.go
package ruleset

// RawRuleset is a ruleset file as loaded from YAML.
type RawRuleset struct {
	Version    string        `yaml:"version"`
	Name       string        `yaml:"name"`
	ChanceTime *int          `yaml:"chance_time,omitempty"`
	FailDrops  *bool         `yaml:"fail_drops,omitempty"` // default for levels that do not set it
	Boom       *BoomConfig   `yaml:"boom,omitempty"`       // default boom policy
	Cost       *CostConfig   `yaml:"cost,omitempty"`
	Levels     []LevelConfig `yaml:"levels,omitempty"`
	Notes      string        `yaml:"notes,omitempty"`
}

type LevelConfig struct {
	Success   float64     `yaml:"success"`
	Maintain  float64     `yaml:"maintain"`
	Boom      float64     `yaml:"boom"`
	FailDrops *bool       `yaml:"fail_drops,omitempty"`
	OnBoom    *BoomConfig `yaml:"on_boom,omitempty"`
}

type BoomConfig struct {
	Mode  string `yaml:"mode"` // "floor" | "drop"
	Floor *int   `yaml:"floor,omitempty"`
	Drop  *int   `yaml:"drop,omitempty"`
}

type CostConfig struct {
	Multiplier *int64       `yaml:"multiplier,omitempty"`
	Base       *float64     `yaml:"base,omitempty"`
	Tiers      []TierConfig `yaml:"tiers,omitempty"`
}

type TierConfig struct {
	From     int     `yaml:"from"`
	To       int     `yaml:"to"`
	Exponent float64 `yaml:"exponent"`
	Divisor  float64 `yaml:"divisor"`
}
