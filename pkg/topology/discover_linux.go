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

import "fmt"

// NewReader returns the topology reader for the given source.
func NewReader(source Source) (Reader, error) {
	switch source {
	case "", SourceAuto, SourceSysfs:
		return NewSysfsReader(), nil
	case SourceCadvisor:
		return NewCadvisorReader(), nil
	}

	return nil, fmt.Errorf("unknown topology source %q", source)
}
