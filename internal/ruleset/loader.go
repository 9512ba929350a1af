package ruleset

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/xtding233/starforce/internal/starforce"
)

//go:embed default.yaml
var defaultYAML []byte

// DefaultName is the name of the built-in ruleset.
const DefaultName = "classic"

// Default returns the built-in ruleset.
func Default() *starforce.Ruleset {
	raw, err := parseYAML(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("ruleset: embedded default: %v", err))
	}
	rs, err := Resolve(raw, Overrides{})
	if err != nil {
		panic(fmt.Sprintf("ruleset: embedded default: %v", err))
	}
	return rs
}

// Paths helper for default/named ruleset files.
type Paths struct {
	BaseDir string // base directory, e.g., /opt/app/rulesets
}

func (p Paths) DefaultPath() string {
	return filepath.Join(p.BaseDir, "default.yaml")
}
func (p Paths) RulesetPath(name string) string {
	return filepath.Join(p.BaseDir, "rulesets", name+".yaml")
}

// Loader reads YAML rulesets and merges default → named.
// Without a default.yaml in BaseDir the embedded default is used.
type Loader struct {
	paths Paths

	mu    sync.RWMutex
	cache map[string]RawRuleset // key: ruleset name, "" for default only
}

// NewLoader creates a ruleset loader with the given base directory.
func NewLoader(baseDir string) *Loader {
	return &Loader{
		paths: Paths{BaseDir: baseDir},
		cache: make(map[string]RawRuleset),
	}
}

// WatchPatterns returns globs covering every file any ruleset name may read.
func (l *Loader) WatchPatterns() []string {
	return []string{
		l.paths.DefaultPath(),
		filepath.Join(l.paths.BaseDir, "rulesets", "*.yaml"),
	}
}

// LoadMerged loads and merges default → named (name optional).
// A named ruleset that has no file is an error.
func (l *Loader) LoadMerged(name string) (RawRuleset, error) {
	if name == DefaultName {
		name = ""
	}
	l.mu.RLock()
	if cfg, ok := l.cache[name]; ok {
		l.mu.RUnlock()
		return cfg, nil
	}
	l.mu.RUnlock()

	defCfg, found, err := readYAML(l.paths.DefaultPath())
	if err != nil {
		return RawRuleset{}, fmt.Errorf("read default: %w", err)
	}
	if !found {
		if defCfg, err = parseYAML(defaultYAML); err != nil {
			return RawRuleset{}, fmt.Errorf("parse embedded default: %w", err)
		}
	}

	merged := defCfg
	if name != "" {
		named, found, err := readYAML(l.paths.RulesetPath(name))
		if err != nil {
			return RawRuleset{}, fmt.Errorf("read ruleset %q: %w", name, err)
		}
		if !found {
			return RawRuleset{}, fmt.Errorf("%w: unknown ruleset %q", starforce.ErrInvalidArgument, name)
		}
		merged = mergeRaw(defCfg, named)
		if merged.Name == defCfg.Name || merged.Name == "" {
			merged.Name = name
		}
	}

	l.mu.Lock()
	l.cache[name] = merged
	l.mu.Unlock()

	return merged, nil
}

// Load returns the engine ruleset for name with overrides applied.
func (l *Loader) Load(name string, o Overrides) (*starforce.Ruleset, error) {
	raw, err := l.LoadMerged(name)
	if err != nil {
		return nil, err
	}
	return Resolve(raw, o)
}

// Invalidate clears loader's cache. Call after hot-reload detects changes.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]RawRuleset)
}

// readYAML loads a YAML file. Missing files report found=false, no error.
func readYAML(path string) (RawRuleset, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawRuleset{}, false, nil
		}
		return RawRuleset{}, false, err
	}
	cfg, err := parseYAML(b)
	if err != nil {
		return RawRuleset{}, false, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, true, nil
}

func parseYAML(b []byte) (RawRuleset, error) {
	var cfg RawRuleset
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawRuleset{}, err
	}
	return cfg, nil
}

// mergeRaw overlays b on a: scalars and pointers replace when set,
// lists (levels, cost tiers) replace when non-empty.
func mergeRaw(a, b RawRuleset) RawRuleset {
	out := a

	// top-level scalars
	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Name != "" {
		out.Name = b.Name
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}
	if b.ChanceTime != nil {
		out.ChanceTime = b.ChanceTime
	}
	if b.FailDrops != nil {
		out.FailDrops = b.FailDrops
	}
	if b.Boom != nil {
		c := *b.Boom
		out.Boom = &c
	}

	// cost
	switch {
	case out.Cost == nil && b.Cost != nil:
		c := *b.Cost
		out.Cost = &c
	case out.Cost != nil && b.Cost != nil:
		c := *out.Cost
		if b.Cost.Multiplier != nil {
			c.Multiplier = b.Cost.Multiplier
		}
		if b.Cost.Base != nil {
			c.Base = b.Cost.Base
		}
		if len(b.Cost.Tiers) > 0 {
			c.Tiers = append([]TierConfig(nil), b.Cost.Tiers...)
		}
		out.Cost = &c
	}

	// levels
	if len(b.Levels) > 0 {
		out.Levels = append([]LevelConfig(nil), b.Levels...)
	}

	return out
}
