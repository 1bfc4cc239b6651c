// Package config loads and validates the declarative sweep description:
// parameter axes, constraints, scheduling knobs, and the pipeline
// command. Validation happens before any case executes, so a bad
// declaration fails the run without wasting benchmarking work.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/provebench/provebench/paramspace"
)

// AxisDecl declares one parameter axis.
type AxisDecl struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
}

// ConstraintDecl declares a conditional constraint: whenever every
// when pair matches a combination, every require pair must match too.
type ConstraintDecl struct {
	Name    string            `yaml:"name"`
	When    map[string]string `yaml:"when"`
	Require map[string]string `yaml:"require"`
}

// PipelineDecl declares how to invoke the external proving pipeline.
type PipelineDecl struct {
	Binary string   `yaml:"binary"`
	Args   []string `yaml:"args"`
	Env    []string `yaml:"env"`
}

// Config is the parsed sweep declaration.
type Config struct {
	Axes              []AxisDecl       `yaml:"axes"`
	Constraints       []ConstraintDecl `yaml:"constraints"`
	RepeatCount       int              `yaml:"repeat_count"`
	Concurrency       int              `yaml:"concurrency"`
	FailFast          bool             `yaml:"fail_fast"`
	SequentialRepeats *bool            `yaml:"sequential_repeats"`
	Pipeline          PipelineDecl     `yaml:"pipeline"`
	ScratchDir        string           `yaml:"scratch_dir"`
	Output            string           `yaml:"output"`
}

// Load reads, parses, and validates a sweep declaration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RepeatCount < 1 {
		c.RepeatCount = 1
	}

	if c.ScratchDir == "" {
		c.ScratchDir = "tmp"
	}

	if c.Output == "" {
		c.Output = "provebench-report.json"
	}

	if c.SequentialRepeats == nil {
		t := true
		c.SequentialRepeats = &t
	}
}

// Validate checks the declaration for contradictions. Axis names must
// be unique with non-empty value lists, and constraints may only
// reference declared axes and declared values.
func (c *Config) Validate() error {
	if len(c.Axes) == 0 {
		return fmt.Errorf("no axes declared")
	}

	axisValues := make(map[string]map[string]struct{}, len(c.Axes))

	for _, axis := range c.Axes {
		if axis.Name == "" {
			return fmt.Errorf("axis with empty name")
		}

		if _, dup := axisValues[axis.Name]; dup {
			return fmt.Errorf("duplicate axis %q", axis.Name)
		}

		if len(axis.Values) == 0 {
			return fmt.Errorf("axis %q has no values", axis.Name)
		}

		vals := make(map[string]struct{}, len(axis.Values))
		for _, v := range axis.Values {
			vals[v] = struct{}{}
		}

		axisValues[axis.Name] = vals
	}

	for i, decl := range c.Constraints {
		if len(decl.When) == 0 || len(decl.Require) == 0 {
			return fmt.Errorf(
				"constraint %d: both when and require must be non-empty", i,
			)
		}

		for _, pairs := range []map[string]string{decl.When, decl.Require} {
			for axis, value := range pairs {
				vals, ok := axisValues[axis]
				if !ok {
					return fmt.Errorf(
						"constraint %d references unknown axis %q", i, axis,
					)
				}

				if _, ok := vals[value]; !ok {
					return fmt.Errorf(
						"constraint %d references unknown value %q of axis %q",
						i, value, axis,
					)
				}
			}
		}
	}

	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}

	return nil
}

// Space builds the parameter space declared by the config, with all
// constraints registered in declaration order.
func (c *Config) Space() (*paramspace.Space, error) {
	axes := make([]paramspace.Axis, 0, len(c.Axes))
	for _, decl := range c.Axes {
		axes = append(axes, paramspace.Axis{
			Name:   decl.Name,
			Values: decl.Values,
		})
	}

	space, err := paramspace.New(axes...)
	if err != nil {
		return nil, fmt.Errorf("build parameter space: %w", err)
	}

	for i, decl := range c.Constraints {
		space.Register(compileConstraint(i, decl))
	}

	return space, nil
}

func compileConstraint(index int, decl ConstraintDecl) paramspace.Constraint {
	name := decl.Name
	if name == "" {
		name = fmt.Sprintf("constraint-%d", index)
	}

	when := decl.When
	require := decl.Require

	return paramspace.NewConstraint(name, func(s paramspace.Set) bool {
		for axis, value := range when {
			if v, _ := s.Value(axis); v != value {
				return true
			}
		}

		for axis, value := range require {
			if v, _ := s.Value(axis); v != value {
				return false
			}
		}

		return true
	})
}
