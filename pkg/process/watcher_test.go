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

package process

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergelogvinov/procpin/pkg/config"

	clocktesting "k8s.io/utils/clock/testing"
)

func countingLister(procs ...Process) (Lister, *atomic.Int32) {
	scans := &atomic.Int32{}

	return ListerFunc(func(_ context.Context) ([]Process, error) {
		scans.Add(1)

		return procs, nil
	}), scans
}

func receive(t *testing.T, out <-chan Process, n int) []Process {
	t.Helper()

	got := make([]Process, 0, n)

	for range n {
		select {
		case proc, ok := <-out:
			require.True(t, ok, "channel closed early")

			got = append(got, proc)
		case <-time.After(5 * time.Second):
			require.FailNow(t, "timed out waiting for a process")
		}
	}

	return got
}

func TestWatcherRescansOnInterval(t *testing.T) {
	t.Parallel()

	procs := []Process{{PID: 10, Name: "game"}, {PID: 11, Name: "encoder"}}
	lister, scans := countingLister(procs...)
	fakeClock := clocktesting.NewFakeClock(time.Now())

	watcher := NewWatcher(lister, Options{Interval: time.Second, Clock: fakeClock})

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Process)
	done := make(chan error, 1)

	go func() { done <- watcher.Run(ctx, out) }()

	assert.Equal(t, procs, receive(t, out, 2))

	require.Eventually(t, fakeClock.HasWaiters, 5*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, scans.Load())

	fakeClock.Step(time.Second)

	assert.Equal(t, procs, receive(t, out, 2), "every scan delivers the same processes again")
	assert.EqualValues(t, 2, scans.Load())

	cancel()

	require.NoError(t, <-done)

	_, ok := <-out
	assert.False(t, ok, "output channel is closed on shutdown")
}

func TestWatcherCancelWhileSending(t *testing.T) {
	t.Parallel()

	lister, _ := countingLister(Process{PID: 1, Name: "init"})
	watcher := NewWatcher(lister, Options{Clock: clocktesting.NewFakeClock(time.Now())})

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Process)
	done := make(chan error, 1)

	go func() { done <- watcher.Run(ctx, out) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "watcher did not stop")
	}
}

func TestWatcherListError(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	lister := ListerFunc(func(_ context.Context) ([]Process, error) {
		return nil, errBoom
	})

	out := make(chan Process)
	err := NewWatcher(lister, Options{}).Run(context.Background(), out)

	assert.ErrorIs(t, err, errBoom)

	_, ok := <-out
	assert.False(t, ok)
}

func TestWatcherTriggerPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lister, scans := countingLister(Process{PID: 7, Name: "game"})

	watcher := NewWatcher(lister, Options{
		Interval:     time.Hour,
		TriggerPaths: []string{dir},
		Clock:        clocktesting.NewFakeClock(time.Now()),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Process)
	done := make(chan error, 1)

	go func() { done <- watcher.Run(ctx, out) }()

	receive(t, out, 1)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "game.pid"), []byte("7\n"), 0o644))

	receive(t, out, 1)
	assert.GreaterOrEqual(t, scans.Load(), int32(2))

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherMissingTriggerPath(t *testing.T) {
	t.Parallel()

	lister, scans := countingLister()
	watcher := NewWatcher(lister, Options{TriggerPaths: []string{filepath.Join(t.TempDir(), "missing")}})

	out := make(chan Process)
	err := watcher.Run(context.Background(), out)

	assert.Error(t, err)
	assert.EqualValues(t, 0, scans.Load())
}

func TestWatcherDefaultInterval(t *testing.T) {
	t.Parallel()

	lister, _ := countingLister()

	assert.Equal(t, config.DefaultInterval, NewWatcher(lister, Options{}).interval)
	assert.Equal(t, config.DefaultInterval, NewWatcher(lister, Options{Interval: -time.Second}).interval)
	assert.Equal(t, 250*time.Millisecond, NewWatcher(lister, Options{Interval: 250 * time.Millisecond}).interval)
}
