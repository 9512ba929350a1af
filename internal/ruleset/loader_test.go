package ruleset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xtding233/starforce/internal/starforce"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefault(t *testing.T) {
	rs := Default()
	if rs.Name != DefaultName || rs.MaxLevel() != 25 || rs.ChanceTime != 2 {
		t.Fatalf("default ruleset: name=%q max=%d chance=%d", rs.Name, rs.MaxLevel(), rs.ChanceTime)
	}
	for lvl, row := range rs.Levels {
		safe := lvl <= 10 || lvl == 15 || lvl == 20
		if row.FailDrops == safe {
			t.Fatalf("level %d FailDrops=%v", lvl, row.FailDrops)
		}
		if row.Boom > 0 && row.OnBoom.Target(lvl) != 12 {
			t.Fatalf("level %d boom target=%d, want 12", lvl, row.OnBoom.Target(lvl))
		}
	}
	if err := rs.Validate(0, 25, 150); err != nil {
		t.Fatalf("default ruleset invalid: %v", err)
	}
}

func TestLoaderFallsBackToEmbedded(t *testing.T) {
	l := NewLoader(t.TempDir())
	rs, err := l.Load("", Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if rs.Name != DefaultName || rs.MaxLevel() != 25 {
		t.Fatalf("fallback ruleset=%q levels=%d", rs.Name, rs.MaxLevel())
	}
	if _, err := l.Load(DefaultName, Overrides{}); err != nil {
		t.Fatalf("load by default name: %v", err)
	}
}

func TestLoaderMergesNamedOverDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "rulesets", "event.yaml"), `chance_time: 0
boom:
  mode: drop
  drop: 2
cost:
  multiplier: 50
`)
	l := NewLoader(dir)
	rs, err := l.Load("event", Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if rs.Name != "event" {
		t.Fatalf("name=%q, want event", rs.Name)
	}
	if rs.ChanceTime != 0 {
		t.Fatalf("chance time=%d, want 0", rs.ChanceTime)
	}
	if rs.Pricing.Multiplier != 50 || rs.Pricing.Base != 10 || len(rs.Pricing.Tiers) != 3 {
		t.Fatalf("cost=%+v", rs.Pricing)
	}
	if got := rs.Levels[20].OnBoom.Target(20); got != 18 {
		t.Fatalf("boom at 20 goes to %d, want 18", got)
	}
}

func TestLoaderDefaultFileReplacesEmbedded(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "default.yaml"), `name: tiny
chance_time: 0
cost:
  multiplier: 1
  base: 1
  tiers: [{from: 0, to: 1, exponent: 1, divisor: 1}]
levels:
  - {success: 1, maintain: 0, boom: 0}
  - {success: 0.5, maintain: 0.5, boom: 0}
`)
	rs, err := NewLoader(dir).Load("", Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if rs.Name != "tiny" || rs.MaxLevel() != 2 {
		t.Fatalf("got %q with %d levels", rs.Name, rs.MaxLevel())
	}
}

func TestLoaderUnknownName(t *testing.T) {
	_, err := NewLoader(t.TempDir()).Load("nope", Overrides{})
	if !errors.Is(err, starforce.ErrInvalidArgument) {
		t.Fatalf("err=%v", err)
	}
}

func TestLoaderCacheAndInvalidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rulesets", "x.yaml")
	writeFile(t, path, "chance_time: 3\n")
	l := NewLoader(dir)
	rs, err := l.Load("x", Overrides{})
	if err != nil || rs.ChanceTime != 3 {
		t.Fatalf("first load: %v %v", rs, err)
	}
	writeFile(t, path, "chance_time: 4\n")
	if rs, _ = l.Load("x", Overrides{}); rs.ChanceTime != 3 {
		t.Fatalf("cached load saw %d", rs.ChanceTime)
	}
	l.Invalidate()
	if rs, _ = l.Load("x", Overrides{}); rs.ChanceTime != 4 {
		t.Fatalf("after invalidate saw %d", rs.ChanceTime)
	}
}

func TestLoaderWatchPatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "default.yaml"), "name: classic\n")
	writeFile(t, filepath.Join(dir, "rulesets", "event.yaml"), "chance_time: 0\n")
	writeFile(t, filepath.Join(dir, "rulesets", "legacy.yaml"), "chance_time: 0\n")
	writeFile(t, filepath.Join(dir, "rulesets", "notes.txt"), "x\n")

	var files []string
	for _, pattern := range NewLoader(dir).WatchPatterns() {
		m, err := filepath.Glob(pattern)
		if err != nil {
			t.Fatal(err)
		}
		files = append(files, m...)
	}
	want := []string{
		filepath.Join(dir, "default.yaml"),
		filepath.Join(dir, "rulesets", "event.yaml"),
		filepath.Join(dir, "rulesets", "legacy.yaml"),
	}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Fatalf("watched %v, want %v", files, want)
	}
}

func TestOverrides(t *testing.T) {
	ct, floor := 0, 5
	rs, err := NewLoader(t.TempDir()).Load("", Overrides{ChanceTime: &ct, BoomFloor: &floor})
	if err != nil {
		t.Fatal(err)
	}
	if rs.ChanceTime != 0 {
		t.Fatalf("chance time=%d", rs.ChanceTime)
	}
	for lvl, row := range rs.Levels {
		if row.Boom > 0 && row.OnBoom.Target(lvl) != 5 {
			t.Fatalf("level %d boom target=%d", lvl, row.OnBoom.Target(lvl))
		}
	}
	// overrides must not leak into the cached file
	rs, _ = NewLoader(t.TempDir()).Load("", Overrides{})
	if rs.ChanceTime != 2 {
		t.Fatalf("chance time leaked: %d", rs.ChanceTime)
	}
}

func TestOverridesRejectBoomAboveLevel(t *testing.T) {
	floor := 20
	_, err := NewLoader(t.TempDir()).Load("", Overrides{BoomFloor: &floor})
	if !errors.Is(err, starforce.ErrRuleset) {
		t.Fatalf("err=%v, want ErrRuleset", err)
	}
	if !strings.Contains(err.Error(), "levels[15] boom target 20 is above the level") {
		t.Fatalf("err=%v", err)
	}
	if strings.Contains(err.Error(), "levels[20] boom target") {
		t.Fatalf("boom back to the same level must be allowed: %v", err)
	}
}

func TestMergeRawKeepsUnsetFields(t *testing.T) {
	ct := 2
	mult := int64(100)
	a := RawRuleset{Name: "a", ChanceTime: &ct, Cost: &CostConfig{Multiplier: &mult}, Levels: []LevelConfig{{Success: 1}}}
	out := mergeRaw(a, RawRuleset{Notes: "b"})
	if out.Name != "a" || *out.ChanceTime != 2 || *out.Cost.Multiplier != 100 || len(out.Levels) != 1 || out.Notes != "b" {
		t.Fatalf("merge=%+v", out)
	}
}

func TestValidateRaw(t *testing.T) {
	raw, err := parseYAML(defaultYAML)
	if err != nil {
		t.Fatal(err)
	}
	if err := ValidateRaw(raw); err != nil {
		t.Fatalf("embedded default: %v", err)
	}

	bad := raw
	bad.Levels = append([]LevelConfig(nil), raw.Levels...)
	bad.Levels[3].Success = 0.5
	bad.Levels[4].Maintain = -0.1
	bad.Cost = &CostConfig{Tiers: []TierConfig{{From: 0, To: 9, Exponent: 1, Divisor: 0}}}
	neg := -1
	bad.ChanceTime = &neg

	err = ValidateRaw(bad)
	if !errors.Is(err, starforce.ErrRuleset) {
		t.Fatalf("err=%v, want ErrRuleset", err)
	}
	for _, want := range []string{
		"chance_time must be >= 0",
		"levels[3] probabilities sum",
		"levels[4].maintain must be in [0,1]",
		"cost.tiers[0].divisor must be > 0",
		"no cost tier covers level 10",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}

func TestValidateRawBoomPolicy(t *testing.T) {
	floor := 40
	raw := RawRuleset{
		Boom: &BoomConfig{Mode: "floor", Floor: &floor},
		Cost: &CostConfig{Tiers: []TierConfig{{From: 0, To: 0, Exponent: 1, Divisor: 1}}},
		Levels: []LevelConfig{
			{Success: 0.5, Maintain: 0.4, Boom: 0.1, OnBoom: &BoomConfig{Mode: "explode"}},
		},
	}
	err := ValidateRaw(raw)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "boom.floor must be in [0,1)") || !strings.Contains(err.Error(), "levels[0].on_boom.mode") {
		t.Fatalf("err=%v", err)
	}
}
