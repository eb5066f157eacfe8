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

// Package affinity reads and restricts the CPUs a process may run on.
package affinity

import (
	"fmt"

	"github.com/sergelogvinov/procpin/pkg/ccx"
	"github.com/sergelogvinov/procpin/pkg/config"
	"github.com/sergelogvinov/procpin/pkg/process"

	"k8s.io/utils/cpuset"
)

// Provider is the operating system interface for process affinity.
type Provider interface {
	// Get returns the CPUs the process may currently run on.
	Get(pid int) (cpuset.CPUSet, error)
	// Set restricts the process to the given CPUs.
	Set(pid int, cpus cpuset.CPUSet) error
}

// Options configures the native provider.
type Options struct {
	// AllThreads applies the set to every thread of the process, not only the
	// thread whose id equals the pid. Linux only.
	AllThreads bool
	// ProcRoot defaults to /proc. Linux only.
	ProcRoot string
}

// Applier restricts processes to their selected core complexes.
type Applier struct {
	provider Provider
}

// NewApplier creates an applier on top of a provider.
func NewApplier(provider Provider) *Applier {
	return &Applier{provider: provider}
}

// Apply moves the process onto the union of the selected complexes. It
// reports whether the affinity was changed, and leaves a process that is
// already on exactly that set alone.
func (a *Applier) Apply(proc process.Process, selection config.Selection, complexes []ccx.Complex) (bool, error) {
	target, err := selection.CPUs(complexes)
	if err != nil {
		return false, err
	}

	current, err := a.provider.Get(proc.PID)
	if err != nil {
		return false, fmt.Errorf("failed to get affinity of %s: %w", proc, err)
	}

	if current.Equals(target) {
		return false, nil
	}

	if err := a.provider.Set(proc.PID, target); err != nil {
		return false, fmt.Errorf("failed to set affinity of %s to %s: %w", proc, target, err)
	}

	return true, nil
}
