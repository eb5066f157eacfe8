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

package topology

import (
	"fmt"
	"sort"

	info "github.com/google/cadvisor/info/v1"

	"k8s.io/utils/cpuset"
)

// CoresFromMachineTopology converts cadvisor NUMA nodes into cores. The cache
// group of a core is its deepest uncore cache, or the deepest node level cache
// when the whole node shares it.
func CoresFromMachineTopology(nodes []info.Node) ([]Core, error) {
	var cores []Core

	for _, node := range nodes {
		nodeCache, hasNodeCache := deepestCache(node.Caches)

		for _, core := range node.Cores {
			cache, ok := deepestCache(core.UncoreCaches)
			if !ok {
				cache, ok = nodeCache, hasNodeCache
			}

			if !ok {
				return nil, fmt.Errorf("%w: no shared cache for core %d on node %d", ErrTopologyUnavailable, core.Id, node.Id)
			}

			for _, thread := range core.Threads {
				cores = append(cores, Core{
					PhysicalID: core.Id,
					CPUs:       cpuset.New(thread),
					Cache: CacheGroup{
						ID:   cache.Id,
						Size: cache.Size,
					},
				})
			}
		}
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("%w: machine topology has no cores", ErrTopologyUnavailable)
	}

	sort.Slice(cores, func(i, j int) bool {
		return cores[i].CPUs.List()[0] < cores[j].CPUs.List()[0]
	})

	return cores, nil
}

func deepestCache(caches []info.Cache) (info.Cache, bool) {
	found := false
	deepest := info.Cache{}

	for _, cache := range caches {
		if cache.Level > deepest.Level {
			deepest = cache
			found = true
		}
	}

	return deepest, found
}
