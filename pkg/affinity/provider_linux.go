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

package affinity

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/sergelogvinov/procpin/pkg/utils/sys"

	"k8s.io/utils/cpuset"
)

var cpuSetBits = int(unsafe.Sizeof(unix.CPUSet{})) * 8

// SchedProvider uses sched_getaffinity and sched_setaffinity.
type SchedProvider struct {
	allThreads bool
	procRoot   string

	getaffinity func(tid int, set *unix.CPUSet) error
	setaffinity func(tid int, set *unix.CPUSet) error
}

// NewProvider returns the native affinity provider.
func NewProvider(opts Options) (Provider, error) {
	root := opts.ProcRoot
	if root == "" {
		root = sys.ProcRoot
	}

	return &SchedProvider{
		allThreads:  opts.AllThreads,
		procRoot:    root,
		getaffinity: unix.SchedGetaffinity,
		setaffinity: unix.SchedSetaffinity,
	}, nil
}

// Get returns the affinity of the thread whose id equals pid.
func (p *SchedProvider) Get(pid int) (cpuset.CPUSet, error) {
	var set unix.CPUSet

	if err := p.getaffinity(pid, &set); err != nil {
		return cpuset.New(), mapErrno(pid, err)
	}

	return fromUnixCPUSet(&set), nil
}

// Set applies the affinity to the process, and to each of its threads when
// AllThreads is set. Threads that exit meanwhile are ignored.
func (p *SchedProvider) Set(pid int, cpus cpuset.CPUSet) error {
	set, err := toUnixCPUSet(cpus)
	if err != nil {
		return err
	}

	if !p.allThreads {
		if err := p.setaffinity(pid, set); err != nil {
			return mapErrno(pid, err)
		}

		return nil
	}

	threads, err := sys.GetProcessThreads(p.procRoot, pid)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: pid %d", ErrProcessGone, pid)
		}

		return fmt.Errorf("failed to list threads of pid %d: %w", pid, err)
	}

	// The main thread goes last: Get reads it, so it only matches the target
	// once every other thread has been moved.
	others := make([]int, 0, len(threads))

	for _, tid := range threads {
		if tid != pid {
			others = append(others, tid)
		}
	}

	for _, tid := range others {
		if err := p.setaffinity(tid, set); err != nil {
			if errors.Is(err, unix.ESRCH) {
				continue
			}

			return mapErrno(tid, err)
		}
	}

	if err := p.setaffinity(pid, set); err != nil {
		return mapErrno(pid, err)
	}

	return nil
}

func mapErrno(pid int, err error) error {
	switch {
	case errors.Is(err, unix.EPERM), errors.Is(err, unix.EACCES):
		return fmt.Errorf("%w: pid %d: %w", ErrPermission, pid, err)
	case errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%w: pid %d", ErrProcessGone, pid)
	default:
		return fmt.Errorf("pid %d: %w", pid, err)
	}
}

func fromUnixCPUSet(set *unix.CPUSet) cpuset.CPUSet {
	cpus := make([]int, 0, set.Count())

	for cpu := range cpuSetBits {
		if set.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}

	return cpuset.New(cpus...)
}

func toUnixCPUSet(cpus cpuset.CPUSet) (*unix.CPUSet, error) {
	if cpus.IsEmpty() {
		return nil, errors.New("empty cpu set")
	}

	var set unix.CPUSet

	for _, cpu := range cpus.List() {
		if cpu < 0 || cpu >= cpuSetBits {
			return nil, fmt.Errorf("cpu %d outside of the affinity mask", cpu)
		}

		set.Set(cpu)
	}

	return &set, nil
}
