// Package watcher turns writes made to the shared storage by other processes into bus
// notifications, so every surface in this process sees them.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/logger"
	"github.com/booklyapp/bookly/internal/store"
)

// Watcher observes the database files of a store.ChangeFeed.
//
// File events are debounced; once the files settle the feed is read and each changed
// key is published as the coarse event a local write to it would have produced.
type Watcher struct {
	feed   store.ChangeFeed
	keys   store.Keys
	bus    events.Publisher
	opts   Options
	logger *slog.Logger

	fs *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a watcher for feed. Nothing is observed until Start.
func New(feed store.ChangeFeed, keys store.Keys, bus events.Publisher, log *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// SQLite replaces the -wal file, so watch the directory rather than the files.
	dir := filepath.Dir(feed.Path())
	if err := fs.Add(dir); err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		feed:   feed,
		keys:   keys,
		bus:    bus,
		opts:   opts,
		logger: logger.OrDiscard(log),
		fs:     fs,
		done:   make(chan struct{}),
	}, nil
}

// Start processes file events until ctx is cancelled or Stop is called.
// A Start that runs after Stop returns at once.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	select {
	case <-w.done:
		w.mu.Unlock()
		return nil
	default:
	}
	// Registered under mu so Stop either waits for this loop or makes it return above.
	w.wg.Add(1)
	w.mu.Unlock()
	defer w.wg.Done()

	var tick <-chan time.Time
	if w.opts.PollInterval > 0 {
		ticker := time.NewTicker(w.opts.PollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	w.logger.Info("watching storage for external writes", "path", w.feed.Path())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("storage watcher error", "error", err)
		case <-tick:
			w.Sync(ctx)
		}
	}
}

// Stop stops the watcher and releases resources. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.mu.Lock()
		close(w.done)
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()

		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) handleFsnotifyEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	if !isDatabaseFile(w.feed.Path(), event.Name) {
		return
	}
	w.startSettling(ctx)
}

// startSettling (re)arms the settle timer.
func (w *Watcher) startSettling(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.SettleDelay, func() {
		select {
		case <-w.done:
			return
		default:
		}
		w.Sync(ctx)
	})
}

// Sync reads the feed once and publishes one event per changed key type.
// It returns the number of events published.
func (w *Watcher) Sync(ctx context.Context) int {
	changed, err := w.feed.Changes(ctx)
	if err != nil {
		w.logger.Warn("failed to read storage changes", "error", err)
		return 0
	}

	seen := make(map[events.Type]bool)
	published := 0
	for _, full := range changed {
		name, ok := w.keys.Name(full)
		if !ok {
			continue
		}
		e, ok := events.ForStorageKey(name)
		if !ok || seen[e.Type] {
			continue
		}
		seen[e.Type] = true
		w.logger.Debug("external storage write", "key", full, "event", e.Type)
		w.bus.Publish(e)
		published++
	}
	return published
}
