package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/booklyapp/bookly/internal/config"
	"github.com/booklyapp/bookly/internal/logger"
	"github.com/booklyapp/bookly/internal/seed"
	"github.com/booklyapp/bookly/internal/store"
	"github.com/booklyapp/bookly/internal/store/sqlite"
)

// BackendHandle wraps the configured key/value backend with shutdown capability.
type BackendHandle struct {
	store.Backend
	// Feed is set when other processes can write to the same storage.
	Feed store.ChangeFeed
	Kind string
}

// Shutdown implements do.Shutdownable.
func (h *BackendHandle) Shutdown() error {
	return h.Close()
}

// ProvideBackend opens the badger or sqlite backend under the data path.
func ProvideBackend(i do.Injector) (*BackendHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		dbPath := filepath.Join(cfg.Storage.Path, "bookly.db")
		db, err := sqlite.Open(dbPath, log.Component("sqlite"))
		if err != nil {
			return nil, err
		}
		return &BackendHandle{Backend: db, Feed: db, Kind: config.BackendSQLite}, nil

	default:
		dbPath := filepath.Join(cfg.Storage.Path, "badger")
		db, err := store.New(dbPath, log.Component("badger"))
		if err != nil {
			return nil, err
		}
		return &BackendHandle{Backend: db, Kind: config.BackendBadger}, nil
	}
}

// ProvideKeys provides the namespaced storage keys.
func ProvideKeys(i do.Injector) (store.Keys, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return store.NewKeys(cfg.Storage.Namespace), nil
}

// ProvideCatalog provides the embedded seed catalog, or the one at SEED_PATH.
func ProvideCatalog(i do.Injector) (*seed.Catalog, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Catalog.SeedPath == "" {
		return seed.Default(), nil
	}
	catalog, err := seed.Load(cfg.Catalog.SeedPath, log.Component("seed"))
	if err != nil {
		return nil, err
	}
	log.Info("seed catalog loaded", "path", cfg.Catalog.SeedPath, "books", catalog.Len())
	return catalog, nil
}

// ProvideUserBooks provides the persisted user collection.
func ProvideUserBooks(i do.Injector) (*store.UserBooks, error) {
	backend := do.MustInvoke[*BackendHandle](i)
	keys := do.MustInvoke[store.Keys](i)
	log := do.MustInvoke[*logger.Logger](i)
	return store.NewUserBooks(backend, keys, log.Component("user_books")), nil
}

// ProvideOverlays provides the persisted ratings, statuses and preferences.
func ProvideOverlays(i do.Injector) (*store.Overlays, error) {
	backend := do.MustInvoke[*BackendHandle](i)
	keys := do.MustInvoke[store.Keys](i)
	log := do.MustInvoke[*logger.Logger](i)
	return store.NewOverlays(backend, keys, log.Component("overlays")), nil
}
