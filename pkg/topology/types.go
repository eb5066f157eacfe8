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

// Package topology reads the logical CPUs of the host together with their
// physical core and last level cache domain.
package topology

import (
	"github.com/pkg/errors"

	"k8s.io/utils/cpuset"
)

var (
	// ErrTopologyUnavailable is returned when a topology source cannot be read.
	ErrTopologyUnavailable = errors.New("topology unavailable")
	// ErrParse is returned when a topology value is not a valid integer.
	ErrParse = errors.New("malformed topology value")
	// ErrMalformedRecord is returned when a processor information record is truncated.
	ErrMalformedRecord = errors.New("malformed processor information record")
	// ErrUnsupportedPlatform is returned on platforms without a topology source.
	ErrUnsupportedPlatform = errors.New("topology discovery is not supported on this platform")
)

// CacheGroup identifies a shared last level cache domain.
type CacheGroup struct {
	// ID is the platform scoped identifier of the cache domain.
	ID int `json:"id"`
	// Size of the cache in bytes, zero when unknown.
	Size uint64 `json:"size,omitempty"`
}

// Core describes one schedulable unit of the processor.
type Core struct {
	// PhysicalID identifies the physical core. SMT siblings share it.
	PhysicalID int
	// CPUs is the scheduling handle of the core: a single logical CPU on
	// Linux, the bits of the processor core mask on Windows.
	CPUs cpuset.CPUSet
	// Cache is the last level cache the core belongs to.
	Cache CacheGroup
}

// Source selects the topology reader.
type Source string

const (
	// SourceAuto uses the native source of the platform.
	SourceAuto Source = "auto"
	// SourceSysfs reads /sys/devices/system/cpu directly.
	SourceSysfs Source = "sysfs"
	// SourceCadvisor uses the cadvisor machine topology (Linux only).
	SourceCadvisor Source = "cadvisor"
)

// Reader produces the cores visible to the operating system.
type Reader interface {
	Cores() ([]Core, error)
}

// ReaderFunc is a function adapter for Reader.
type ReaderFunc func() ([]Core, error)

// Cores calls the ReaderFunc.
func (f ReaderFunc) Cores() ([]Core, error) {
	return f()
}
