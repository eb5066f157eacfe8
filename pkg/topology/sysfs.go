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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/sergelogvinov/procpin/pkg/utils/sys"

	"k8s.io/utils/cpuset"
)

// SysfsBasePath is the root of the per CPU topology hierarchy.
const SysfsBasePath = "/sys/devices/system/cpu"

// SysfsReader reads the topology from the per CPU files of sysfs.
type SysfsReader struct {
	// Root defaults to SysfsBasePath.
	Root string
}

// NewSysfsReader returns a reader for the host sysfs.
func NewSysfsReader() *SysfsReader {
	return &SysfsReader{Root: SysfsBasePath}
}

// Cores returns one Core per online logical CPU, ordered by CPU number.
// Every CPU must expose its core id and last level cache id, otherwise the
// whole topology is rejected.
func (r *SysfsReader) Cores() ([]Core, error) {
	cpus, err := r.listCPUs()
	if err != nil {
		return nil, err
	}

	if len(cpus) == 0 {
		return nil, fmt.Errorf("%w: no CPUs found in %s", ErrTopologyUnavailable, r.root())
	}

	cores := make([]Core, 0, len(cpus))

	for _, cpu := range cpus {
		core, err := r.readCore(cpu)
		if err != nil {
			return nil, fmt.Errorf("cpu %d: %w", cpu, err)
		}

		cores = append(cores, core)
	}

	return cores, nil
}

func (r *SysfsReader) root() string {
	if r.Root == "" {
		return SysfsBasePath
	}

	return r.Root
}

func (r *SysfsReader) listCPUs() ([]int, error) {
	ids, err := sys.ListNumericEntries(r.root(), "cpu")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTopologyUnavailable, err)
	}

	online, err := sys.ReadStringFile(filepath.Join(r.root(), "online"))
	if err != nil {
		if os.IsNotExist(err) {
			return ids, nil
		}

		return nil, fmt.Errorf("%w: %w", ErrTopologyUnavailable, err)
	}

	onlineCPUs, err := cpuset.Parse(online)
	if err != nil {
		return nil, fmt.Errorf("%w: online cpus %q: %w", ErrParse, online, err)
	}

	return lo.Filter(ids, func(id int, _ int) bool {
		return onlineCPUs.Contains(id)
	}), nil
}

func (r *SysfsReader) readCore(cpu int) (Core, error) {
	coreID, err := readValue(r.cpuPath(cpu, "topology", "core_id"))
	if err != nil {
		return Core{}, err
	}

	cache, err := r.readLastLevelCache(cpu)
	if err != nil {
		return Core{}, err
	}

	return Core{
		PhysicalID: coreID,
		CPUs:       cpuset.New(cpu),
		Cache:      cache,
	}, nil
}

// readLastLevelCache picks the deepest cache level listed under
// cpuN/cache/indexM, which is the L3 on the processors we target.
func (r *SysfsReader) readLastLevelCache(cpu int) (CacheGroup, error) {
	cacheDir := r.cpuPath(cpu, "cache")

	indices, err := sys.ListNumericEntries(cacheDir, "index")
	if err != nil {
		return CacheGroup{}, fmt.Errorf("%w: %w", ErrTopologyUnavailable, err)
	}

	deepest, deepestLevel := -1, 0

	for _, index := range indices {
		level, err := sys.ReadIntFile(filepath.Join(cacheDir, "index"+strconv.Itoa(index), "level"))
		if err != nil {
			continue
		}

		if level > deepestLevel {
			deepest, deepestLevel = index, level
		}
	}

	if deepest < 0 {
		return CacheGroup{}, fmt.Errorf("%w: no cache levels in %s", ErrTopologyUnavailable, cacheDir)
	}

	indexDir := filepath.Join(cacheDir, "index"+strconv.Itoa(deepest))

	id, err := readValue(filepath.Join(indexDir, "id"))
	if err != nil {
		return CacheGroup{}, err
	}

	size := uint64(0)
	if raw, err := sys.ReadStringFile(filepath.Join(indexDir, "size")); err == nil {
		size = parseCacheSize(raw)
	}

	return CacheGroup{ID: id, Size: size}, nil
}

func (r *SysfsReader) cpuPath(cpu int, elem ...string) string {
	return filepath.Join(append([]string{r.root(), "cpu" + strconv.Itoa(cpu)}, elem...)...)
}

func readValue(path string) (int, error) {
	value, err := sys.ReadIntFile(path)
	if err != nil {
		var numErr *sys.NumError
		if errors.As(err, &numErr) || errors.Is(err, sys.ErrEmptyFile) {
			return 0, fmt.Errorf("%w: %w", ErrParse, err)
		}

		return 0, fmt.Errorf("%w: %w", ErrTopologyUnavailable, err)
	}

	return value, nil
}

// parseCacheSize parses sizes like 32768K. Unknown formats yield zero.
func parseCacheSize(raw string) uint64 {
	multiplier := uint64(1)

	switch {
	case strings.HasSuffix(raw, "K"):
		multiplier = 1 << 10
	case strings.HasSuffix(raw, "M"):
		multiplier = 1 << 20
	case strings.HasSuffix(raw, "G"):
		multiplier = 1 << 30
	}

	value, err := strconv.ParseUint(strings.TrimRight(raw, "KMG"), 10, 64)
	if err != nil {
		return 0
	}

	return value * multiplier
}
