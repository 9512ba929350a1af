// Package config loads application settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/xtding233/starforce/internal/logger"
)

// EnvPrefix prefixes every environment override, e.g. STARFORCE_SIM_TRIALS.
const EnvPrefix = "STARFORCE_"

// Config holds application-wide settings.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation" envPrefix:"SIM_"`
	Ruleset    RulesetConfig    `yaml:"ruleset" envPrefix:"RULESET_"`
	Storage    StorageConfig    `yaml:"storage" envPrefix:"STORAGE_"`
	Server     ServerConfig     `yaml:"server" envPrefix:"SERVER_"`
	Logging    logger.Config    `yaml:"logging" envPrefix:"LOG_"`
}

// SimulationConfig holds batch runner defaults.
type SimulationConfig struct {
	// Trials is the default number of walks per simulation.
	Trials int `yaml:"trials" env:"TRIALS"`

	// Parallel runs trials on a worker pool.
	Parallel bool `yaml:"parallel" env:"PARALLEL"`

	// Workers is the pool size; 0 means one per CPU.
	Workers int `yaml:"workers" env:"WORKERS"`

	// ShardSize is the number of trials a worker claims at a time.
	ShardSize int `yaml:"shard_size" env:"SHARD_SIZE"`

	// Seed is the root RNG seed; 0 draws a fresh one per run.
	Seed uint64 `yaml:"seed" env:"SEED"`

	// MaxTrials caps requests coming in over the network.
	MaxTrials int `yaml:"max_trials" env:"MAX_TRIALS"`
}

// RulesetConfig locates ruleset files.
type RulesetConfig struct {
	// Dir holds default.yaml and rulesets/<name>.yaml; empty uses the built-in table.
	Dir string `yaml:"dir" env:"DIR"`

	// Name selects the ruleset used when a request names none.
	Name string `yaml:"name" env:"NAME"`

	// WatchInterval polls ruleset files for changes; 0 disables reloading.
	WatchInterval time.Duration `yaml:"watch_interval" env:"WATCH_INTERVAL"`
}

// StorageConfig selects where saved results live.
type StorageConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver" env:"DRIVER"`

	SQLitePath  string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
}

// ServerConfig holds listener addresses.
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr" env:"GRPC_ADDR"`
	HTTPAddr string `yaml:"http_addr" env:"HTTP_ADDR"`
}

// Default returns a Config with usable defaults.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Trials:    100_000,
			Parallel:  true,
			Workers:   0,
			ShardSize: 4096,
			MaxTrials: 10_000_000,
		},
		Ruleset: RulesetConfig{
			Name: "classic",
		},
		Storage: StorageConfig{
			Driver:     "sqlite",
			SQLitePath: "data/starforce.db",
		},
		Server: ServerConfig{
			GRPCAddr: ":9090",
			HTTPAddr: ":8080",
		},
		Logging: logger.DefaultConfig(),
	}
}

// Load reads path over the defaults, then applies STARFORCE_* environment
// variables. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks semantic constraints of a Config.
func (c *Config) Validate() error {
	var errs []string
	if c.Simulation.Trials < 1 {
		errs = append(errs, "simulation.trials must be >= 1")
	}
	if c.Simulation.Workers < 0 {
		errs = append(errs, "simulation.workers must be >= 0")
	}
	if c.Simulation.ShardSize < 0 {
		errs = append(errs, "simulation.shard_size must be >= 0")
	}
	if c.Simulation.MaxTrials < c.Simulation.Trials {
		errs = append(errs, "simulation.max_trials must be >= simulation.trials")
	}
	if c.Ruleset.WatchInterval < 0 {
		errs = append(errs, "ruleset.watch_interval must be >= 0")
	}
	switch c.Storage.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			errs = append(errs, "storage.sqlite_path is required for driver=sqlite")
		}
	case "postgres":
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			errs = append(errs, "storage.postgres_dsn is required for driver=postgres")
		}
	default:
		errs = append(errs, "storage.driver must be one of: sqlite, postgres")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
