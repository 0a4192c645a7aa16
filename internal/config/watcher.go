// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"

	"github.com/antimetal/hoststat/pkg/performance"
)

// Watcher reloads a configuration file whenever it changes and publishes every
// configuration that loads cleanly. Invalid edits are logged and skipped, so
// subscribers keep running with the last good configuration.
//
// The parent directory is watched rather than the file itself so that editors
// which replace the file through a rename are still noticed.
type Watcher struct {
	mu sync.RWMutex

	path    string
	watcher *fsnotify.Watcher
	logger  logr.Logger
	done    chan struct{}
	wg      sync.WaitGroup

	current performance.CollectionConfig
	subs    []chan performance.CollectionConfig
	closed  bool
}

// NewWatcher loads path and starts watching it. It fails if the initial load fails.
func NewWatcher(path string, logger logr.Logger) (*Watcher, error) {
	wLogger := logger.WithName("config.watcher")

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	current, err := Load(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		if cerr := watcher.Close(); cerr != nil {
			wLogger.Error(cerr, "failed to close fs watcher")
		}
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		path:    path,
		watcher: watcher,
		logger:  wLogger,
		done:    make(chan struct{}),
		current: current,
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// Current returns the last configuration that loaded cleanly
func (w *Watcher) Current() performance.CollectionConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Subscribe returns a channel receiving each new configuration. A slow subscriber
// only ever sees the newest pending configuration. The channel is closed by Close.
func (w *Watcher) Subscribe() <-chan performance.CollectionConfig {
	w.mu.Lock()
	defer w.mu.Unlock()

	ch := make(chan performance.CollectionConfig, 1)
	if w.closed {
		close(ch)
		return ch
	}
	w.subs = append(w.subs, ch)
	return ch
}

func (w *Watcher) Close() error {
	close(w.done)
	w.wg.Wait()

	w.mu.Lock()
	for _, ch := range w.subs {
		close(ch)
	}
	w.subs = nil
	w.closed = true
	w.mu.Unlock()

	return w.watcher.Close()
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error(err, "filesystem watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	w.logger.V(1).Info("received file event", "file", event.Name, "op", event.Op)

	config, err := Load(w.path)
	if err != nil {
		w.logger.Error(err, "failed to reload config file, keeping previous configuration", "path", w.path)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = config
	for _, ch := range w.subs {
		// Drop the stale pending value, if any
		select {
		case <-ch:
		default:
		}
		ch <- config
	}
	w.logger.Info("configuration reloaded", "path", w.path)
}
