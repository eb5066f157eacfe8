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

package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		args     []string
		exitCode int
		stdout   string
		stderr   []string
		noUsage  bool
	}{
		{
			name:   "version",
			args:   []string{"--version"},
			stdout: "procpin version v0.0.0 (commit: none)",
		},
		{
			name:     "unknown flag",
			args:     []string{"--bogus"},
			exitCode: 1,
			stderr:   []string{"Error: unknown flag: --bogus", "Usage:"},
		},
		{
			name:     "unexpected argument",
			args:     []string{"game"},
			exitCode: 1,
			stderr:   []string{"Error: unknown command \"game\" for \"procpin\"", "Usage:"},
		},
		{
			name:     "unknown topology flag shows the subcommand usage",
			args:     []string{"topology", "--config", "x"},
			exitCode: 1,
			stderr:   []string{"Error: unknown flag: --config", "procpin topology [flags]"},
		},
		{
			name:     "runtime error has no usage",
			args:     []string{"topology", "--topology-source", "bogus"},
			exitCode: 1,
			stderr:   []string{"Error: ", "bogus"},
			noUsage:  true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer

			exitCode := run(context.Background(), testCase.args, &stdout, &stderr)

			assert.Equal(t, testCase.exitCode, exitCode, "stderr: %s", stderr.String())
			assert.Contains(t, stdout.String(), testCase.stdout)

			for _, line := range testCase.stderr {
				assert.Contains(t, stderr.String(), line)
			}

			if testCase.noUsage {
				assert.NotContains(t, stderr.String(), "Usage:")
			}
		})
	}
}

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := setupLogger(1, &buf)
	logger.Info("Pinned process", "pid", 42)
	logger.V(1).Info("Process exited before pinning")
	logger.V(2).Info("Process already pinned")

	assert.Contains(t, buf.String(), "procpin")
	assert.Contains(t, buf.String(), "Pinned process")
	assert.Contains(t, buf.String(), "Process exited before pinning")
	assert.NotContains(t, buf.String(), "Process already pinned")

	buf.Reset()

	setupLogger(-1, &buf).Info("Pinned process")
	assert.Empty(t, buf.String())
}
