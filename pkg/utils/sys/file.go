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

// Package sys reads the small text files exposed by sysfs and procfs.
package sys

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrEmptyFile is returned when a value file exists but holds no content.
var ErrEmptyFile = errors.New("empty file")

// NumError reports a value file whose content is not an integer.
type NumError struct {
	Path  string
	Value string
	Err   error
}

func (e *NumError) Error() string {
	return fmt.Sprintf("parsing %q from %s: %v", e.Value, e.Path, e.Err)
}

func (e *NumError) Unwrap() error {
	return e.Err
}

// ReadStringFile returns the trimmed content of a file.
func ReadStringFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// ReadIntFile reads a file holding a single decimal integer.
func ReadIntFile(path string) (int, error) {
	value, err := ReadStringFile(path)
	if err != nil {
		return 0, err
	}

	if value == "" {
		return 0, fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, &NumError{Path: path, Value: value, Err: err}
	}

	return parsed, nil
}

// ListNumericEntries returns the sorted numeric suffixes of the directory
// entries in dir whose name is prefix followed by a decimal number,
// e.g. cpu0, cpu1 for prefix "cpu", or 1, 42 for an empty prefix.
func ListNumericEntries(dir, prefix string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		suffix, ok := strings.CutPrefix(entry.Name(), prefix)
		if !ok || suffix == "" {
			continue
		}

		id, err := strconv.Atoi(suffix)
		if err != nil || id < 0 {
			continue
		}

		ids = append(ids, id)
	}

	sort.Ints(ids)

	return ids, nil
}
