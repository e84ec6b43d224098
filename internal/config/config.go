// Package config loads the YAML run file of a powermix transform.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/powermix/internal/tables"
)

// Environment variables that override the run file.
const (
	EnvScenario = "POWERMIX_SCENARIO"
	EnvYear     = "POWERMIX_YEAR"
)

var (
	// ErrMissingField is returned when a required setting is empty.
	ErrMissingField = errors.New("missing required setting")
	// ErrInvalidYear is returned for a non-positive or unparsable year.
	ErrInvalidYear = errors.New("invalid scenario year")
)

// Tables holds the paths of the `;`-separated lookup tables.
type Tables struct {
	RegionMapping string `yaml:"region_mapping"`
	Population    string `yaml:"population"`
	HeatingValues string `yaml:"heating_values"`
	Aggregates    string `yaml:"aggregates,omitempty"`
}

// ScenarioFiles holds the paths of the pre-extracted scenario cubes.
type ScenarioFiles struct {
	Supply     string `yaml:"supply"`
	Efficiency string `yaml:"efficiency,omitempty"`
	Emission   string `yaml:"emission,omitempty"`
}

// Labels maps technology labels to scenario variables per cube. A non-empty
// table replaces the labels embedded in the cube file.
type Labels struct {
	Supply     map[string]string `yaml:"supply,omitempty"`
	Efficiency map[string]string `yaml:"efficiency,omitempty"`
	Emission   map[string]string `yaml:"emission,omitempty"`
}

// Config is one transform run.
type Config struct {
	Scenario string `yaml:"scenario"`
	Year     int    `yaml:"year"`
	Strict   bool   `yaml:"strict"`

	Inventory string        `yaml:"inventory,omitempty"`
	Output    string        `yaml:"output,omitempty"`
	Tables    Tables        `yaml:"tables"`
	Scenarios ScenarioFiles `yaml:"scenario_files"`
	Labels    Labels        `yaml:"labels,omitempty"`

	// Technologies and Emissions are merged over the built-in tables.
	Technologies map[string][]string `yaml:"technologies,omitempty"`
	Emissions    map[string]string   `yaml:"emissions,omitempty"`

	MetricsTextfile string `yaml:"metrics_textfile,omitempty"`
}

// Load reads the run file at path, applies environment overrides, resolves
// relative paths against the file's directory and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.resolve(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvScenario)); v != "" {
		c.Scenario = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvYear)); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", EnvYear, v, ErrInvalidYear)
		}
		c.Year = year
	}
	return nil
}

func (c *Config) resolve(dir string) {
	for _, p := range []*string{
		&c.Inventory,
		&c.Output,
		&c.Tables.RegionMapping,
		&c.Tables.Population,
		&c.Tables.HeatingValues,
		&c.Tables.Aggregates,
		&c.Scenarios.Supply,
		&c.Scenarios.Efficiency,
		&c.Scenarios.Emission,
		&c.MetricsTextfile,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Validate checks that every setting a run needs is present.
func (c *Config) Validate() error {
	if c.Scenario == "" {
		return fmt.Errorf("config: scenario: %w", ErrMissingField)
	}
	if c.Year <= 0 {
		return fmt.Errorf("config: year %d: %w", c.Year, ErrInvalidYear)
	}
	required := []struct {
		name, value string
	}{
		{"tables.region_mapping", c.Tables.RegionMapping},
		{"tables.population", c.Tables.Population},
		{"tables.heating_values", c.Tables.HeatingValues},
		{"scenario_files.supply", c.Scenarios.Supply},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("config: %s: %w", r.name, ErrMissingField)
		}
	}
	return nil
}

// TechnologyMap returns the built-in technology map with the run's overrides
// applied. An override with no names removes the label.
func (c *Config) TechnologyMap() tables.TechnologyMap {
	m := tables.DefaultTechnologyMap()
	for label, names := range c.Technologies {
		if len(names) == 0 {
			delete(m, label)
			continue
		}
		m[label] = append([]string(nil), names...)
	}
	return m
}

// EmissionMap returns the built-in flow to pollutant map with the run's
// overrides applied.
func (c *Config) EmissionMap() tables.EmissionMap {
	m := tables.DefaultEmissionMap()
	for flow, pollutant := range c.Emissions {
		if pollutant == "" {
			delete(m, flow)
			continue
		}
		m[flow] = pollutant
	}
	return m
}
