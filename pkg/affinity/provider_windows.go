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
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/sergelogvinov/procpin/pkg/topology"

	"k8s.io/utils/cpuset"
)

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procGetProcessAffinityMask = modkernel32.NewProc("GetProcessAffinityMask")
	procSetProcessAffinityMask = modkernel32.NewProc("SetProcessAffinityMask")
)

// MaskProvider uses the process affinity mask of the first processor group.
type MaskProvider struct{}

// NewProvider returns the native affinity provider. A process mask covers all
// of its threads, so AllThreads has no effect.
func NewProvider(_ Options) (Provider, error) {
	if err := procGetProcessAffinityMask.Find(); err != nil {
		return nil, fmt.Errorf("GetProcessAffinityMask: %w", err)
	}

	if err := procSetProcessAffinityMask.Find(); err != nil {
		return nil, fmt.Errorf("SetProcessAffinityMask: %w", err)
	}

	return &MaskProvider{}, nil
}

// Get returns the process affinity mask as a CPU set.
func (p *MaskProvider) Get(pid int) (cpuset.CPUSet, error) {
	handle, err := openProcess(pid)
	if err != nil {
		return cpuset.New(), err
	}
	defer windows.CloseHandle(handle) //nolint:errcheck

	var processMask, systemMask uintptr

	r1, _, e1 := procGetProcessAffinityMask.Call(
		uintptr(handle),
		uintptr(unsafe.Pointer(&processMask)),
		uintptr(unsafe.Pointer(&systemMask)),
	)
	if r1 == 0 {
		return cpuset.New(), mapError(pid, e1)
	}

	return topology.MaskToCPUSet(uint64(processMask)), nil
}

// Set replaces the process affinity mask.
func (p *MaskProvider) Set(pid int, cpus cpuset.CPUSet) error {
	mask, dropped := topology.CPUSetToMask(cpus)
	if !dropped.IsEmpty() {
		return fmt.Errorf("cpus %s outside of the affinity mask", dropped)
	}

	if mask == 0 {
		return errors.New("empty cpu set")
	}

	handle, err := openProcess(pid)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(handle) //nolint:errcheck

	r1, _, e1 := procSetProcessAffinityMask.Call(uintptr(handle), uintptr(mask))
	if r1 == 0 {
		return mapError(pid, e1)
	}

	return nil
}

func openProcess(pid int) (windows.Handle, error) {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_SET_INFORMATION, false, uint32(pid))
	if err != nil {
		return 0, mapError(pid, err)
	}

	return handle, nil
}

func mapError(pid int, err error) error {
	switch {
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("%w: pid %d: %w", ErrPermission, pid, err)
	case errors.Is(err, windows.ERROR_INVALID_PARAMETER):
		return fmt.Errorf("%w: pid %d", ErrProcessGone, pid)
	default:
		return fmt.Errorf("pid %d: %w", pid, err)
	}
}
