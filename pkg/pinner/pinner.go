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

// Package pinner applies the configured complexes to the processes it receives.
package pinner

import (
	"context"
	"errors"

	"github.com/go-logr/logr"

	"github.com/sergelogvinov/procpin/pkg/affinity"
	"github.com/sergelogvinov/procpin/pkg/ccx"
	"github.com/sergelogvinov/procpin/pkg/config"
	"github.com/sergelogvinov/procpin/pkg/process"
)

// Resolver maps an executable name to its selection.
type Resolver interface {
	Lookup(name string) (config.Selection, bool)
}

// Applier moves a process onto the selected complexes.
type Applier interface {
	Apply(proc process.Process, selection config.Selection, complexes []ccx.Complex) (bool, error)
}

// Pinner is the consumer of the process stream.
type Pinner struct {
	complexes []ccx.Complex
	resolver  Resolver
	applier   Applier
	logger    logr.Logger
}

// New creates a pinner for a fixed set of complexes.
func New(complexes []ccx.Complex, resolver Resolver, applier Applier, logger logr.Logger) *Pinner {
	return &Pinner{
		complexes: complexes,
		resolver:  resolver,
		applier:   applier,
		logger:    logger,
	}
}

// Run handles processes until in is closed or ctx is cancelled.
func (p *Pinner) Run(ctx context.Context, in <-chan process.Process) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case proc, ok := <-in:
			if !ok {
				return nil
			}

			p.Handle(proc)
		}
	}
}

// Handle pins a single process if its name is configured. Failures are
// logged, a process that cannot be pinned never stops the loop.
func (p *Pinner) Handle(proc process.Process) {
	selection, ok := p.resolver.Lookup(proc.Name)
	if !ok {
		return
	}

	logger := p.logger.WithValues("pid", proc.PID, "name", proc.Name)

	changed, err := p.applier.Apply(proc, selection, p.complexes)
	if err != nil {
		switch {
		case errors.Is(err, affinity.ErrProcessGone):
			logger.V(1).Info("Process exited before pinning")
		case errors.Is(err, affinity.ErrPermission):
			logger.Error(err, "Not allowed to change process affinity")
		case errors.Is(err, config.ErrInvalidSelection):
			logger.Error(err, "Invalid complex selection", "complexes", selection)
		default:
			logger.Error(err, "Failed to pin process")
		}

		return
	}

	if changed {
		logger.Info("Pinned process", "complexes", []int(selection))
	} else {
		logger.V(2).Info("Process already pinned", "complexes", []int(selection))
	}
}
