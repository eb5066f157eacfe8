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

//go:build linux

package topology

import (
	"fmt"

	"github.com/google/cadvisor/machine"
	"github.com/google/cadvisor/utils/sysfs"
)

// CadvisorReader reads the topology through cadvisor.
type CadvisorReader struct {
	SysFs sysfs.SysFs
}

// NewCadvisorReader returns a reader over the host sysfs.
func NewCadvisorReader() *CadvisorReader {
	return &CadvisorReader{SysFs: sysfs.NewRealSysFs()}
}

// Cores returns one Core per logical CPU known to cadvisor.
func (r *CadvisorReader) Cores() ([]Core, error) {
	nodes, _, err := machine.GetTopology(r.SysFs)
	if err != nil {
		return nil, fmt.Errorf("%w: cadvisor: %w", ErrTopologyUnavailable, err)
	}

	return CoresFromMachineTopology(nodes)
}
