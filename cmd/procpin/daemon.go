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
	"fmt"
	"os/signal"
	"syscall"

	cobra "github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sergelogvinov/procpin/pkg/affinity"
	"github.com/sergelogvinov/procpin/pkg/ccx"
	"github.com/sergelogvinov/procpin/pkg/config"
	"github.com/sergelogvinov/procpin/pkg/pinner"
	"github.com/sergelogvinov/procpin/pkg/process"
	"github.com/sergelogvinov/procpin/pkg/topology"

	"k8s.io/klog/v2"
)

func buildRootCmd() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:           command,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		Short:         "Keep programs on their preferred core complexes",
		Args:          noArgs,
		RunE:          o.runDaemon,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	o.addFlags(cmd)
	cmd.SetFlagErrorFunc(flagError)
	cmd.AddCommand(buildTopologyCmd(o))

	return cmd
}

func discoverComplexes(source string) ([]ccx.Complex, error) {
	reader, err := topology.NewReader(topology.Source(source))
	if err != nil {
		return nil, err
	}

	cores, err := reader.Cores()
	if err != nil {
		return nil, fmt.Errorf("failed to read CPU topology: %w", err)
	}

	complexes, err := ccx.Group(cores)
	if err != nil {
		return nil, fmt.Errorf("failed to group cores: %w", err)
	}

	return complexes, nil
}

func (o *options) runDaemon(cmd *cobra.Command, _ []string) error {
	logger := setupLogger(o.verbosity, cmd.ErrOrStderr())
	klog.SetLogger(logger)

	logger.Info("Process pinner", "version", version, "verbosity", o.verbosity)

	complexes, err := discoverComplexes(o.topologySource)
	if err != nil {
		return err
	}

	showTopology(logger, complexes)

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	if err := cfg.Validate(len(complexes)); err != nil {
		return fmt.Errorf("configuration %s does not match the %d complexes of this machine: %w", o.configPath, len(complexes), err)
	}

	interval := cfg.PollInterval()
	if o.interval > 0 {
		interval = o.interval
	}

	lister, err := process.NewLister()
	if err != nil {
		return err
	}

	provider, err := affinity.NewProvider(affinity.Options{AllThreads: o.allThreads})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher := process.NewWatcher(lister, process.Options{
		Interval:     interval,
		TriggerPaths: o.watchPaths,
		Logger:       logger.WithName("watcher"),
	})
	consumer := pinner.New(complexes, cfg, affinity.NewApplier(provider), logger.WithName("pinner"))

	procs := make(chan process.Process)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return watcher.Run(gctx, procs) })
	g.Go(func() error { return consumer.Run(gctx, procs) })

	logger.Info("Pinner started", "programs", cfg.Names(), "interval", interval, "watchPaths", o.watchPaths)

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Pinner stopped")

	return nil
}
