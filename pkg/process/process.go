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

// Package process enumerates running processes and feeds them to a consumer.
package process

import (
	"context"
	"fmt"
)

// Process is a running process seen during a scan.
type Process struct {
	PID int
	// Name is the executable name, used as the configuration key.
	Name string
}

func (p Process) String() string {
	return fmt.Sprintf("%s[%d]", p.Name, p.PID)
}

// Lister enumerates the running processes. An error means the enumeration
// could not start at all; processes that vanish or cannot be read while
// listing are skipped.
type Lister interface {
	List(ctx context.Context) ([]Process, error)
}

// ListerFunc is a function adapter for Lister.
type ListerFunc func(ctx context.Context) ([]Process, error)

// List calls the ListerFunc.
func (f ListerFunc) List(ctx context.Context) ([]Process, error) {
	return f(ctx)
}
