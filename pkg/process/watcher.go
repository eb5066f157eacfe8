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
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"

	"github.com/sergelogvinov/procpin/pkg/config"

	"k8s.io/utils/clock"
)

// Options configures a Watcher.
type Options struct {
	// Interval between the end of one scan and the start of the next,
	// config.DefaultInterval when not set.
	Interval time.Duration
	// TriggerPaths are watched for created or written files. An event starts
	// the next scan early, several events before a scan count as one.
	TriggerPaths []string
	// Clock defaults to the real clock.
	Clock clock.Clock

	Logger logr.Logger
}

// Watcher periodically lists the processes and delivers them to a channel.
type Watcher struct {
	lister   Lister
	interval time.Duration
	paths    []string
	clock    clock.Clock
	logger   logr.Logger
}

// NewWatcher creates a watcher over the given lister.
func NewWatcher(lister Lister, opts Options) *Watcher {
	w := &Watcher{
		lister:   lister,
		interval: opts.Interval,
		paths:    opts.TriggerPaths,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}

	if w.interval <= 0 {
		w.interval = config.DefaultInterval
	}

	if w.clock == nil {
		w.clock = clock.RealClock{}
	}

	return w
}

// Run scans until ctx is cancelled, sending every process of a scan to out in
// enumeration order. The same process is sent again on every scan. Run closes
// out before returning. Cancellation is not an error; a failure to list the
// processes is.
func (w *Watcher) Run(ctx context.Context, out chan<- Process) error {
	defer close(out)

	trigger, stop, err := w.watchPaths(ctx)
	if err != nil {
		return err
	}
	defer stop()

	for scan := 1; ; scan++ {
		procs, err := w.lister.List(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("failed to list processes: %w", err)
		}

		w.logger.V(4).Info("Process scan", "scan", scan, "processes", len(procs))

		for _, proc := range procs {
			select {
			case out <- proc:
			case <-ctx.Done():
				return nil
			}
		}

		timer := w.clock.NewTimer(w.interval)

		select {
		case <-ctx.Done():
			timer.Stop()

			return nil
		case <-timer.C():
		case <-trigger:
			timer.Stop()
			w.logger.V(3).Info("Scan triggered by file event")
		}
	}
}

// watchPaths starts a file watcher on the trigger paths. The returned channel
// is nil without paths, which never fires in a select.
func (w *Watcher) watchPaths(ctx context.Context) (<-chan struct{}, func(), error) {
	if len(w.paths) == 0 {
		return nil, func() {}, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	for _, path := range w.paths {
		if err := watcher.Add(path); err != nil {
			watcher.Close() //nolint:errcheck

			return nil, nil, fmt.Errorf("failed to watch path %s: %w", path, err)
		}
	}

	trigger := make(chan struct{}, 1)
	relevantOps := fsnotify.Create | fsnotify.Write

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if event.Op&relevantOps == 0 {
					continue
				}

				w.logger.V(5).Info("File system event received", "name", event.Name, "op", event.Op)

				select {
				case trigger <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}

				w.logger.Error(err, "File watcher error")
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := func() {
		watcher.Close() //nolint:errcheck
		wg.Wait()
	}

	return trigger, stop, nil
}
