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

// Package ccx groups cores into core complexes, the sets of cores sharing one
// last level cache.
package ccx

import (
	"fmt"
	"sort"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/sergelogvinov/procpin/pkg/topology"

	"k8s.io/utils/cpuset"
)

// ErrNoCores is returned when there is nothing to group.
var ErrNoCores = errors.New("no cores to group")

// Complex is a set of cores sharing one last level cache.
type Complex struct {
	// Index is the position of the complex, the id used in configuration.
	Index int
	// Cache is the shared cache domain.
	Cache topology.CacheGroup
	// Cores ordered by their lowest logical CPU.
	Cores []topology.Core
}

// CPUs returns the union of the scheduling handles of all cores.
func (c Complex) CPUs() cpuset.CPUSet {
	cpus := cpuset.New()

	for _, core := range c.Cores {
		cpus = cpus.Union(core.CPUs)
	}

	return cpus
}

// PhysicalCores returns the sorted physical core ids of the complex.
func (c Complex) PhysicalCores() []int {
	ids := lo.Uniq(lo.Map(c.Cores, func(core topology.Core, _ int) int {
		return core.PhysicalID
	}))
	sort.Ints(ids)

	return ids
}

// DieIndex estimates which die (CCD) holds the complex from the highest
// physical core id and the number of physical cores per complex. Only
// meaningful when core ids are numbered contiguously across dies.
func (c Complex) DieIndex() int {
	physical := c.PhysicalCores()
	if len(physical) == 0 {
		return 0
	}

	return physical[len(physical)-1] / len(physical)
}

func (c Complex) String() string {
	return fmt.Sprintf("ccx%d(cache=%d cpus=%s)", c.Index, c.Cache.ID, c.CPUs())
}

// Group partitions cores by cache group id. Complexes are ordered by their
// lowest logical CPU, so the same machine always yields the same indices.
func Group(cores []topology.Core) ([]Complex, error) {
	if len(cores) == 0 {
		return nil, ErrNoCores
	}

	byCache := lo.GroupBy(cores, func(core topology.Core) int {
		return core.Cache.ID
	})

	complexes := make([]Complex, 0, len(byCache))

	for id, members := range byCache {
		members = append([]topology.Core(nil), members...)
		sort.SliceStable(members, func(i, j int) bool {
			return lowestCPU(members[i]) < lowestCPU(members[j])
		})

		complexes = append(complexes, Complex{
			Cache: topology.CacheGroup{
				ID:   id,
				Size: members[0].Cache.Size,
			},
			Cores: members,
		})
	}

	sort.Slice(complexes, func(i, j int) bool {
		li, lj := lowestCPU(complexes[i].Cores[0]), lowestCPU(complexes[j].Cores[0])
		if li != lj {
			return li < lj
		}

		return complexes[i].Cache.ID < complexes[j].Cache.ID
	})

	for i := range complexes {
		complexes[i].Index = i
	}

	return complexes, nil
}

// Fingerprint hashes the index to CPU layout of the complexes. It changes
// whenever a configured index would select different CPUs.
func Fingerprint(complexes []Complex) string {
	type layout struct {
		Index int
		CPUs  []int
	}

	view := lo.Map(complexes, func(c Complex, _ int) layout {
		return layout{Index: c.Index, CPUs: c.CPUs().List()}
	})

	return fmt.Sprintf("%016x", lo.Must(hashstructure.Hash(view, hashstructure.FormatV2, nil)))
}

func lowestCPU(core topology.Core) int {
	if core.CPUs.IsEmpty() {
		return -1
	}

	return core.CPUs.List()[0]
}
