/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the process to core complex preferences.
package config

import (
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// DefaultInterval is the scan interval used when none is configured.
const DefaultInterval = 1000 * time.Millisecond

// maxInterval is the largest interval in milliseconds a time.Duration holds.
const maxInterval = math.MaxInt64 / int64(time.Millisecond)

var (
	// ErrInvalidConfig is returned for a malformed configuration file.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidSelection is returned when a selection names a complex that does not exist.
	ErrInvalidSelection = errors.New("invalid complex selection")
)

// Config is the user configuration, read once at startup.
type Config struct {
	// Interval between process scans in milliseconds, DefaultInterval when zero.
	Interval int `yaml:"interval,omitempty"`
	// Programs maps an executable name to the complexes it may run on.
	Programs map[string]Selection `yaml:"programs"`
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes a YAML configuration.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if errors.Is(err, ErrInvalidConfig) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if cfg.Interval < 0 {
		return nil, fmt.Errorf("%w: negative interval %d", ErrInvalidConfig, cfg.Interval)
	}

	if int64(cfg.Interval) > maxInterval {
		return nil, fmt.Errorf("%w: interval %dms is too large", ErrInvalidConfig, cfg.Interval)
	}

	if cfg.Programs == nil {
		cfg.Programs = map[string]Selection{}
	}

	for _, name := range cfg.Names() {
		if len(cfg.Programs[name]) == 0 {
			return nil, fmt.Errorf("%w: program %q has no complexes", ErrInvalidConfig, name)
		}
	}

	return cfg, nil
}

// PollInterval returns the configured scan interval.
func (c *Config) PollInterval() time.Duration {
	if c.Interval <= 0 {
		return DefaultInterval
	}

	return time.Duration(c.Interval) * time.Millisecond
}

// Lookup returns the selection configured for an executable name.
func (c *Config) Lookup(name string) (Selection, bool) {
	selection, ok := c.Programs[name]

	return selection, ok
}

// Names returns the configured executable names, sorted.
func (c *Config) Names() []string {
	names := lo.Keys(c.Programs)
	sort.Strings(names)

	return names
}

// Validate reports every program whose selection does not fit the complexes.
func (c *Config) Validate(complexCount int) error {
	var errs error

	for _, name := range c.Names() {
		if err := c.Programs[name].Validate(complexCount); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("program %q: %w", name, err))
		}
	}

	return errs
}
