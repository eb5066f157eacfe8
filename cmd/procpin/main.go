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

// Package main implements procpin, a daemon that keeps configured programs on
// their preferred core complexes.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	command = "procpin"
	version = "v0.0.0"
	commit  = "none"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the exit code. Errors caused by
// the command line itself are followed by the usage text.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := buildRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintf(stderr, "Error: %s\n", err)

	var usageErr usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "\n%s", usageErr.cmd.UsageString())
	}

	return 1
}
