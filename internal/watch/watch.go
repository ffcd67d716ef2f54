// Package watch revalidates documents when they change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"github.com/danielpatrickdp/aisp-verify/internal/batch"
	"github.com/danielpatrickdp/aisp-verify/internal/validator"
)

// WatcherConfig configures the watcher.
type WatcherConfig struct {
	// Root is the directory to watch, recursively.
	Root string

	Extensions []string

	// Debounce is how long changes are collected before revalidating.
	Debounce time.Duration

	// Initial validates every matching document on Start.
	Initial bool

	Logger *slog.Logger
}

// DefaultWatcherConfig watches root for the standard document extensions.
func DefaultWatcherConfig(root string) WatcherConfig {
	return WatcherConfig{
		Root:       root,
		Extensions: batch.DefaultConfig().Extensions,
		Debounce:   150 * time.Millisecond,
		Initial:    true,
	}
}

// Operation is the kind of change that triggered an event.
type Operation string

const (
	OpInitial Operation = "initial"
	OpChange  Operation = "change"
	OpDelete  Operation = "delete"
)

// Event is one revalidation. Result is nil for deletes and failures.
type Event struct {
	Path      string
	Operation Operation
	Result    *validator.Result
	Err       error
}

// Watcher emits an Event each time a watched document's content changes.
type Watcher struct {
	config    WatcherConfig
	validator batch.Validator
	fsw       *fsnotify.Watcher
	logger    *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// content hash per path; unchanged saves are not revalidated
	hashes map[string]uint64

	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher. Start begins delivery.
func NewWatcher(config WatcherConfig, v batch.Validator) (*Watcher, error) {
	info, err := os.Stat(config.Root)
	if err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", config.Root)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Debounce <= 0 {
		config.Debounce = 150 * time.Millisecond
	}
	return &Watcher{
		config:    config,
		validator: v,
		fsw:       fsw,
		logger:    logger,
		pending:   make(map[string]fsnotify.Op),
		hashes:    make(map[string]uint64),
		events:    make(chan Event, 64),
		done:      make(chan struct{}),
	}, nil
}

// Events returns the event channel. It is closed when the watcher stops.
func (w *Watcher) Events() <-chan Event { return w.events }

// Start adds the watches, runs the initial pass when configured and then
// processes changes until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	var initial []string
	err := filepath.WalkDir(w.config.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != w.config.Root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return w.add(path)
		}
		if w.matches(path) {
			initial = append(initial, path)
		}
		return nil
	})
	if err != nil {
		_ = w.fsw.Close()
		close(w.events)
		return fmt.Errorf("watch %s: %w", w.config.Root, err)
	}
	w.logger.Info("watching documents", "root", w.config.Root, "debounce", w.config.Debounce)

	ctx, w.cancel = context.WithCancel(ctx)
	go func() {
		defer close(w.done)
		defer close(w.events)
		if w.config.Initial {
			for _, p := range initial {
				if !w.revalidate(ctx, p, OpInitial) {
					return
				}
			}
		}
		w.loop(ctx)
	}()
	return nil
}

// Stop closes the underlying watcher and waits for the loop to exit.
func (w *Watcher) Stop() error {
	err := w.fsw.Close()
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
	return err
}

func (w *Watcher) add(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("add watch %s: %w", dir, err)
	}
	w.logger.Debug("watching directory", "path", dir)
	return nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules"
}

func (w *Watcher) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.ContainsFunc(w.config.Extensions, func(e string) bool { return strings.ToLower(e) == ext })
}

// #region loop

func (w *Watcher) loop(ctx context.Context) {
	ticker := time.NewTicker(w.config.Debounce)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		case <-ticker.C:
			if !w.flush(ctx) {
				return
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !skipDir(filepath.Base(ev.Name)) {
				if err := w.add(ev.Name); err != nil {
					w.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
				}
			}
			return
		}
	}
	if !w.matches(ev.Name) || ev.Op == fsnotify.Chmod {
		return
	}
	w.pendingMu.Lock()
	w.pending[ev.Name] |= ev.Op
	w.pendingMu.Unlock()
}

// flush revalidates everything collected since the last tick. It returns
// false when ctx is done.
func (w *Watcher) flush(ctx context.Context) bool {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return true
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	clear(w.pending)
	w.pendingMu.Unlock()

	slices.Sort(paths)
	for _, p := range paths {
		op := OpChange
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			op = OpDelete
		}
		if !w.revalidate(ctx, p, op) {
			return false
		}
	}
	return true
}

// revalidate validates one path and emits the event. Content identical to
// the last validation is skipped.
func (w *Watcher) revalidate(ctx context.Context, path string, op Operation) bool {
	ev := Event{Path: path, Operation: op}
	if op == OpDelete {
		if _, known := w.hashes[path]; !known {
			return true
		}
		delete(w.hashes, path)
		return w.emit(ctx, ev)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		ev.Err = err
		return w.emit(ctx, ev)
	}
	sum := xxhash.Sum64(src)
	if prev, ok := w.hashes[path]; ok && prev == sum {
		w.logger.Debug("content unchanged", "path", path)
		return true
	}
	w.hashes[path] = sum
	ev.Result, ev.Err = w.validator.Validate(ctx, path, src)
	if ev.Err != nil && ctx.Err() != nil {
		return false
	}
	if ev.Result != nil {
		w.logger.Info("revalidated", "path", path, "valid", ev.Result.Valid, "tier", ev.Result.Tier)
	}
	return w.emit(ctx, ev)
}

func (w *Watcher) emit(ctx context.Context, ev Event) bool {
	select {
	case w.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// #endregion loop
