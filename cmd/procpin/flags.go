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
	"strings"
	"time"

	cobra "github.com/spf13/cobra"

	"sigs.k8s.io/karpenter/pkg/utils/env"
)

const (
	verbosityEnvVarName = "VERBOSITY"
	verbosityFlagName   = "verbosity"

	configEnvVarName = "PROCPIN_CONFIG"
	configFlagName   = "config"

	watchPathEnvVarName = "WATCH_PATH"
	watchPathFlagName   = "watch-path"

	topologySourceEnvVarName = "TOPOLOGY_SOURCE"
	topologySourceFlagName   = "topology-source"

	allThreadsEnvVarName = "ALL_THREADS"
	allThreadsFlagName   = "all-threads"

	intervalEnvVarName = "INTERVAL"
	intervalFlagName   = "interval"

	defaultConfigPath = "/etc/procpin/config.yaml"
)

// options are shared by the daemon and the topology command.
type options struct {
	verbosity      int
	configPath     string
	watchPaths     []string
	topologySource string
	allThreads     bool
	interval       time.Duration
}

func (o *options) addFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.IntVarP(&o.verbosity, verbosityFlagName, "v", env.WithDefaultInt(verbosityEnvVarName, 0), "Verbosity level (0=info, 1=debug, 2=trace, -1=errors only)")
	flags.StringVar(&o.topologySource, topologySourceFlagName, env.WithDefaultString(topologySourceEnvVarName, "auto"), "Topology source (auto, cadvisor)")

	flags = cmd.Flags()
	flags.StringVar(&o.configPath, configFlagName, env.WithDefaultString(configEnvVarName, defaultConfigPath), "Path to the configuration file")
	flags.StringSliceVar(&o.watchPaths, watchPathFlagName, splitList(env.WithDefaultString(watchPathEnvVarName, "")), "Paths whose file events trigger an early scan")
	flags.BoolVar(&o.allThreads, allThreadsFlagName, env.WithDefaultBool(allThreadsEnvVarName, true), "Apply the affinity to every thread of a process (Linux)")
	flags.DurationVar(&o.interval, intervalFlagName, env.WithDefaultDuration(intervalEnvVarName, 0), "Scan interval, overrides the configuration file when set")
}

// usageError marks an error in the command line rather than in the work.
type usageError struct {
	error

	cmd *cobra.Command
}

func (e usageError) Unwrap() error {
	return e.error
}

func flagError(cmd *cobra.Command, err error) error {
	return usageError{error: err, cmd: cmd}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError{error: err, cmd: cmd}
	}

	return nil
}

func splitList(value string) []string {
	var items []string

	for item := range strings.SplitSeq(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}

	return items
}
