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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadIntFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	testCases := []struct {
		name    string
		content string
		want    int
		wantErr error
	}{
		{
			name:    "value with newline",
			content: "12\n",
			want:    12,
		},
		{
			name:    "empty",
			content: "\n",
			wantErr: ErrEmptyFile,
		},
		{
			name:    "not a number",
			content: "abc\n",
		},
	}

	for i, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			path := filepath.Join(dir, "value", string(rune('a'+i)))
			writeFile(t, path, testCase.content)

			got, err := ReadIntFile(path)

			switch {
			case testCase.wantErr != nil:
				assert.ErrorIs(t, err, testCase.wantErr)
			case testCase.content == "abc\n":
				var numErr *NumError
				assert.True(t, errors.As(err, &numErr))
				assert.Equal(t, "abc", numErr.Value)
			default:
				assert.NoError(t, err)
				assert.Equal(t, testCase.want, got)
			}
		})
	}

	_, err := ReadIntFile(filepath.Join(dir, "missing"))
	assert.True(t, os.IsNotExist(err))
}

func TestListNumericEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for _, name := range []string{"cpu10", "cpu2", "cpu0", "cpufreq", "cpuidle", "cpu"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
	}

	writeFile(t, filepath.Join(dir, "cpu3"), "file, not a directory")

	got, err := ListNumericEntries(dir, "cpu")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 10}, got)
}

func TestGetProcessNameAndThreads(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	writeFile(t, filepath.Join(root, "42", "comm"), "game\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "42", "task", "42"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "42", "task", "43"), 0o755))
	writeFile(t, filepath.Join(root, "7", "comm"), "\n")

	name, err := GetProcessName(root, 42)
	require.NoError(t, err)
	assert.Equal(t, "game", name)

	threads, err := GetProcessThreads(root, 42)
	require.NoError(t, err)
	assert.Equal(t, []int{42, 43}, threads)

	_, err = GetProcessName(root, 7)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = GetProcessName(root, 99)
	assert.True(t, os.IsNotExist(err))

	_, err = GetProcessThreads(root, 99)
	assert.Error(t, err)
}
