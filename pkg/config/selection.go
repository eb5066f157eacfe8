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

package config

import (
	"fmt"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/sergelogvinov/procpin/pkg/ccx"

	"k8s.io/utils/cpuset"
)

// Selection is an ordered set of core complex indices. A process with a
// selection may run on the union of the cores of those complexes.
type Selection []int

// NewSelection returns a selection of the given complex indices.
func NewSelection(indices ...int) Selection {
	return Selection(indices)
}

// UnmarshalYAML accepts a single index or a list of indices.
func (s *Selection) UnmarshalYAML(value *yaml.Node) error {
	var indices []int

	switch {
	case value.Kind == yaml.ScalarNode && value.ShortTag() == "!!null":
		return fmt.Errorf("line %d: %w: missing complex index", value.Line, ErrInvalidConfig)
	case value.Kind == yaml.ScalarNode:
		var index int
		if err := value.Decode(&index); err != nil {
			return fmt.Errorf("line %d: complex index: %w", value.Line, err)
		}

		indices = []int{index}
	case value.Kind == yaml.SequenceNode:
		if err := value.Decode(&indices); err != nil {
			return fmt.Errorf("line %d: complex indices: %w", value.Line, err)
		}
	default:
		return fmt.Errorf("line %d: %w: expected a complex index or a list of indices", value.Line, ErrInvalidConfig)
	}

	if len(indices) == 0 {
		return fmt.Errorf("line %d: %w: empty complex list", value.Line, ErrInvalidConfig)
	}

	for _, index := range indices {
		if index < 0 {
			return fmt.Errorf("line %d: %w: negative complex index %d", value.Line, ErrInvalidConfig, index)
		}
	}

	*s = indices

	return nil
}

// Validate checks every index against the number of complexes.
func (s Selection) Validate(complexCount int) error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty selection", ErrInvalidSelection)
	}

	for _, index := range s {
		if index < 0 || index >= complexCount {
			return fmt.Errorf("%w: complex %d out of range, %d complexes available", ErrInvalidSelection, index, complexCount)
		}
	}

	return nil
}

// CPUs returns the union of the CPUs of the selected complexes.
func (s Selection) CPUs(complexes []ccx.Complex) (cpuset.CPUSet, error) {
	if err := s.Validate(len(complexes)); err != nil {
		return cpuset.New(), err
	}

	cpus := cpuset.New()

	for _, index := range lo.Uniq(s) {
		cpus = cpus.Union(complexes[index].CPUs())
	}

	return cpus, nil
}
