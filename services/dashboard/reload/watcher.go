// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reload rebuilds the dataset when an input file changes.
//
// # Description
//
// Used in debug mode only. A Watcher observes the directories holding the
// input files and reports debounced batches of changes to exactly those
// files. A Reloader loads a complete new dataset on each batch and swaps it
// into the store; readers never see a partially loaded dataset.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileChange is one observed change to a watched file.
type FileChange struct {
	// Path is the cleaned absolute path of the file.
	Path string

	// Op is the fsnotify operation.
	Op fsnotify.Op

	// Time is when the change was seen.
	Time time.Time
}

// ChangeHandler is called with each debounced batch, deduplicated by path.
type ChangeHandler func(changes []FileChange)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// DebounceWindow is how long to wait for more changes before
	// triggering. Default: 250ms
	DebounceWindow time.Duration

	// BufferSize is the size of the change buffer channel.
	// Default: 64
	BufferSize int
}

// DefaultWatcherOptions returns the defaults.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		DebounceWindow: 250 * time.Millisecond,
		BufferSize:     64,
	}
}

// Watcher watches a fixed set of files with debouncing.
//
// # Description
//
// Directories are watched rather than files, because editors and export
// tools usually replace a file by renaming a new one over it, which ends a
// watch placed on the file itself. Events for other files in those
// directories are ignored.
//
// # Thread Safety
//
// Start and Stop are safe for concurrent use. The handler is called from a
// single goroutine.
type Watcher struct {
	files    map[string]bool
	dirs     []string
	watcher  *fsnotify.Watcher
	handler  ChangeHandler
	debounce time.Duration

	changes  chan FileChange
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu       sync.Mutex
	watching bool
}

// NewWatcher creates a watcher for paths.
//
// # Inputs
//
//   - paths: Files to watch. Relative paths are resolved now.
//   - handler: Called with each batch.
//   - opts: Optional configuration (nil uses defaults).
//
// # Outputs
//
//   - *Watcher: Call Start to begin watching and Stop to release it.
//   - error: Non-nil if a path cannot be resolved or fsnotify fails.
func NewWatcher(paths []string, handler ChangeHandler, opts *WatcherOptions) (*Watcher, error) {
	if opts == nil {
		defaults := DefaultWatcherOptions()
		opts = &defaults
	}

	files := make(map[string]bool, len(paths))
	dirSet := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		files[abs] = true
		dirSet[filepath.Dir(abs)] = true
	}
	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		files:    files,
		dirs:     dirs,
		watcher:  fw,
		handler:  handler,
		debounce: opts.DebounceWindow,
		changes:  make(chan FileChange, opts.BufferSize),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching.
//
// # Description
//
// Spawns two goroutines, an event processor and a debouncer. Both exit when
// Stop is called or ctx is canceled; pending changes are flushed to the
// handler on exit.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watching {
		return nil
	}

	for _, d := range w.dirs {
		if err := w.watcher.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}
	w.watching = true

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop stops watching and waits for the goroutines to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		if err := w.watcher.Close(); err != nil {
			slog.Warn("failed to close file watcher", "error", err)
		}
		w.wg.Wait()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether the watcher is active.
func (w *Watcher) IsWatching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watching
}

// processEvents forwards events for watched files to the debouncer.
func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			path := filepath.Clean(event.Name)
			if !w.files[path] || event.Op == fsnotify.Chmod {
				continue
			}
			select {
			case w.changes <- FileChange{Path: path, Op: event.Op, Time: time.Now()}:
			default:
				// The batch already holds a pending change; a reload will follow.
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("file watcher error", "error", err)
		}
	}
}

// debounceLoop batches changes and calls the handler once the window
// passes with no new change.
func (w *Watcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()

	var batch []FileChange
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		if len(batch) == 0 {
			return
		}
		deduped := deduplicate(batch)
		batch = batch[:0]
		if w.handler != nil {
			w.handler(deduped)
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			flush()
			return
		case change := <-w.changes:
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer, timerC = nil, nil
			flush()
		}
	}
}

// deduplicate keeps the last change per path, ordered by path.
func deduplicate(changes []FileChange) []FileChange {
	last := make(map[string]FileChange, len(changes))
	for _, c := range changes {
		last[c.Path] = c
	}
	out := make([]FileChange, 0, len(last))
	for _, c := range last {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
