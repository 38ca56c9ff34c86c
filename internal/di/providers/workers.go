package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/booklyapp/bookly/internal/config"
	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/logger"
	"github.com/booklyapp/bookly/internal/store"
	"github.com/booklyapp/bookly/internal/watcher"
)

// StorageWatcherHandle wraps the storage watcher with shutdown capability.
// Watcher is nil when the backend cannot be shared or watching is disabled.
type StorageWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *StorageWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Stop()
}

// ProvideStorageWatcher watches the sqlite file for writes made by other processes
// and republishes them on the bus.
func ProvideStorageWatcher(i do.Injector) (*StorageWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	backend := do.MustInvoke[*BackendHandle](i)

	if !cfg.Storage.Watch || backend.Feed == nil {
		log.Debug("storage watcher disabled", "backend", backend.Kind, "watch", cfg.Storage.Watch)
		return &StorageWatcherHandle{}, nil
	}

	w, err := watcher.New(
		backend.Feed,
		do.MustInvoke[store.Keys](i),
		do.MustInvoke[*events.Bus](i),
		log.Component("watcher"),
		watcher.Options{},
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("storage watcher stopped", "error", err)
		}
	}()

	return &StorageWatcherHandle{Watcher: w, cancel: cancel}, nil
}
