package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "starforce.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load returned error for missing file: %v", err)
	}
	def := Default()
	if cfg.Simulation.Trials != def.Simulation.Trials {
		t.Errorf("Trials = %d, want %d", cfg.Simulation.Trials, def.Simulation.Trials)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Logging.Level = %q, want INFO", cfg.Logging.Level)
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `simulation:
  trials: 5000
  workers: 3
  seed: 42
ruleset:
  dir: rules
  name: custom
  watch_interval: 5s
logging:
  level: DEBUG
  console_format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.Trials != 5000 || cfg.Simulation.Workers != 3 || cfg.Simulation.Seed != 42 {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if cfg.Ruleset.Dir != "rules" || cfg.Ruleset.Name != "custom" || cfg.Ruleset.WatchInterval != 5*time.Second {
		t.Errorf("ruleset = %+v", cfg.Ruleset)
	}
	if cfg.Logging.Level != "DEBUG" || cfg.Logging.ConsoleFormat != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	// untouched keys keep defaults
	if cfg.Server.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want default", cfg.Server.GRPCAddr)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "simulation:\n  trials: 5000\n")
	t.Setenv("STARFORCE_SIM_TRIALS", "777")
	t.Setenv("STARFORCE_STORAGE_DRIVER", "postgres")
	t.Setenv("STARFORCE_STORAGE_POSTGRES_DSN", "postgres://localhost/starforce")
	t.Setenv("STARFORCE_LOG_LEVEL", "ERROR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.Trials != 777 {
		t.Errorf("Trials = %d, want 777", cfg.Simulation.Trials)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.PostgresDSN == "" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Logging.Level = %q, want ERROR", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero trials", func(c *Config) { c.Simulation.Trials = 0 }, "simulation.trials"},
		{"negative workers", func(c *Config) { c.Simulation.Workers = -1 }, "simulation.workers"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }, "storage.driver"},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = "postgres" }, "postgres_dsn"},
		{"cap below default", func(c *Config) { c.Simulation.MaxTrials = 1 }, "max_trials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "simulation: [not, a, map]\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
