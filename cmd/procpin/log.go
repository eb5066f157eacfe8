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
	"io"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"

	"github.com/sergelogvinov/procpin/pkg/ccx"

	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// setupLogger returns a development logger without timestamps or levels.
// Verbosity n enables V(n) messages, -1 leaves only errors.
func setupLogger(verbosity int, w io.Writer) logr.Logger {
	encoder := func(ec *zapcore.EncoderConfig) {
		ec.TimeKey = ""
		ec.LevelKey = ""
	}

	return zap.New(
		zap.UseDevMode(true),
		zap.WriteTo(w),
		zap.Level(zapcore.Level(-verbosity)),
		zap.StacktraceLevel(zapcore.PanicLevel),
		zap.ConsoleEncoder(encoder),
	).WithName(command)
}

func showTopology(logger logr.Logger, complexes []ccx.Complex) {
	logger.Info("===== Core Complexes =====", "fingerprint", ccx.Fingerprint(complexes))
	defer logger.Info("==========================")

	for _, c := range complexes {
		logger.Info("Complex",
			"index", c.Index,
			"cacheID", c.Cache.ID,
			"cacheSize", c.Cache.Size,
			"die", c.DieIndex(),
			"physicalCores", c.PhysicalCores(),
			"cpus", c.CPUs().String(),
		)
	}
}
