package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds benchmark workload parameters, optionally overridden by a
// YAML file passed with --config.
type Tuning struct {
	Elements   int `yaml:"elements"`
	Iterations int `yaml:"iterations"`
	ChunkSize  int `yaml:"chunk_size"`
	LeagueSize int `yaml:"league_size"`
	TeamSize   int `yaml:"team_size"`
}

func defaultTuning() Tuning {
	return Tuning{
		Elements:   1 << 22,
		Iterations: 10,
		ChunkSize:  4096,
		LeagueSize: 64,
		TeamSize:   4,
	}
}

func loadTuning(path string) (Tuning, error) {
	cfg := defaultTuning()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading tuning file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing tuning file %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Tuning) validate() error {
	if c.Elements <= 0 {
		return fmt.Errorf("elements must be positive, got %d", c.Elements)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	if c.LeagueSize <= 0 {
		return fmt.Errorf("league_size must be positive, got %d", c.LeagueSize)
	}
	if c.Elements%c.LeagueSize != 0 {
		return fmt.Errorf("elements (%d) must divide evenly into league_size (%d) teams", c.Elements, c.LeagueSize)
	}
	return nil
}
