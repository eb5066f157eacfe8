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

package process

import (
	"context"
	"fmt"

	"github.com/sergelogvinov/procpin/pkg/utils/sys"
)

// ProcFS lists processes from a procfs mount.
type ProcFS struct {
	// Root defaults to /proc.
	Root string
}

// List returns every process whose comm file could be read, ordered by pid.
func (p *ProcFS) List(ctx context.Context) ([]Process, error) {
	root := p.Root
	if root == "" {
		root = sys.ProcRoot
	}

	pids, err := sys.ListNumericEntries(root, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list processes in %s: %w", root, err)
	}

	procs := make([]Process, 0, len(pids))

	for _, pid := range pids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name, err := sys.GetProcessName(root, pid)
		if err != nil {
			continue
		}

		procs = append(procs, Process{PID: pid, Name: name})
	}

	return procs, nil
}
