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

package sys

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// ProcRoot is the default procfs mount point.
const ProcRoot = "/proc"

// GetProcessName returns the executable short name (comm) of a process.
func GetProcessName(root string, pid int) (string, error) {
	name, err := ReadStringFile(filepath.Join(root, strconv.Itoa(pid), "comm"))
	if err != nil {
		return "", err
	}

	if name == "" {
		return "", fmt.Errorf("process %d: comm %w", pid, ErrEmptyFile)
	}

	return name, nil
}

// GetProcessThreads returns the thread IDs of the given process.
func GetProcessThreads(root string, pid int) ([]int, error) {
	taskDir := filepath.Join(root, strconv.Itoa(pid), "task")

	threads, err := ListNumericEntries(taskDir, "")
	if err != nil {
		return nil, fmt.Errorf("failed to read task directory %s: %w", taskDir, err)
	}

	return threads, nil
}
