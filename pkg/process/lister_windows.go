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
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Toolhelp lists processes from a Toolhelp32 snapshot.
type Toolhelp struct{}

// NewLister returns the native process lister.
func NewLister() (Lister, error) {
	return &Toolhelp{}, nil
}

// List walks a process snapshot in the order the system reports it.
func (t *Toolhelp) List(ctx context.Context) ([]Process, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create process snapshot: %w", err)
	}
	defer windows.CloseHandle(snapshot) //nolint:errcheck

	var entry windows.ProcessEntry32

	entry.Size = uint32(unsafe.Sizeof(entry))

	if err := windows.Process32First(snapshot, &entry); err != nil {
		if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read process snapshot: %w", err)
	}

	var procs []Process

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if name := trimExeName(windows.UTF16ToString(entry.ExeFile[:])); name != "" {
			procs = append(procs, Process{PID: int(entry.ProcessID), Name: name})
		}

		if err := windows.Process32Next(snapshot, &entry); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				return procs, nil
			}

			return nil, fmt.Errorf("failed to read process snapshot: %w", err)
		}
	}
}
