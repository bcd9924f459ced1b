// Package config loads run settings from a YAML file and USAGESIM_* env vars.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/usagesim/chart"
	"github.com/spektr-org/usagesim/clean"
	"github.com/spektr-org/usagesim/generator"
	"github.com/spektr-org/usagesim/metrics"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "USAGESIM"

// Config is the full run configuration.
type Config struct {
	Runtime   Runtime          `yaml:"runtime"`
	Generator generator.Config `yaml:"generator"`
	Clean     clean.Options    `yaml:"clean"`
	Metrics   Metrics          `yaml:"metrics"`
	Chart     Chart            `yaml:"chart"`
}

// Runtime holds where things go and how the process logs.
type Runtime struct {
	Environment string `yaml:"environment"`
	DataDir     string `yaml:"data_dir"`
	OutDir      string `yaml:"out_dir"`
	SQLitePath  string `yaml:"sqlite_path"`
}

// Metrics restricts the metric tables to some platforms or countries.
type Metrics struct {
	Platforms []string `yaml:"platforms"`
	Countries []string `yaml:"countries"`
}

// Options converts to metrics.Options.
func (m Metrics) Options() metrics.Options {
	return metrics.Options{Platforms: m.Platforms, Countries: m.Countries}
}

// Chart sizes the DAU plot.
type Chart struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Options converts to chart.Options.
func (c Chart) Options() chart.Options {
	opts := chart.DefaultOptions()
	if c.Width > 0 {
		opts.Width = c.Width
	}
	if c.Height > 0 {
		opts.Height = c.Height
	}
	return opts
}

// env lists the variables that may override the file. Fields without a
// value in the environment are left nil.
type env struct {
	Environment  *string `envconfig:"ENVIRONMENT"`
	DataDir      *string `envconfig:"DATA_DIR"`
	OutDir       *string `envconfig:"OUT_DIR"`
	SQLitePath   *string `envconfig:"SQLITE_PATH"`
	Seed         *uint64 `envconfig:"SEED"`
	Users        *int    `envconfig:"USERS"`
	TargetEvents *int    `envconfig:"TARGET_EVENTS"`
}

// Default returns the built-in configuration.
func Default() Config {
	chartOpts := chart.DefaultOptions()
	return Config{
		Runtime: Runtime{
			Environment: "development",
			DataDir:     "data",
			OutDir:      "outputs",
		},
		Generator: generator.DefaultConfig(),
		Clean:     clean.DefaultOptions(),
		Chart:     Chart{Width: chartOpts.Width, Height: chartOpts.Height},
	}
}

// Load starts from Default, overlays the YAML file at path (if any) and then
// the USAGESIM_* environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()
		if err := Decode(f, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Decode overlays YAML from r onto cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return fmt.Errorf("failed to process config: %w", err)
	}

	if e.Environment != nil {
		cfg.Runtime.Environment = *e.Environment
	}
	if e.DataDir != nil {
		cfg.Runtime.DataDir = *e.DataDir
	}
	if e.OutDir != nil {
		cfg.Runtime.OutDir = *e.OutDir
	}
	if e.SQLitePath != nil {
		cfg.Runtime.SQLitePath = *e.SQLitePath
	}
	if e.Seed != nil {
		cfg.Generator.Seed = *e.Seed
	}
	if e.Users != nil {
		cfg.Generator.Users = *e.Users
	}
	if e.TargetEvents != nil {
		cfg.Generator.TargetEvents = *e.TargetEvents
	}
	return nil
}
