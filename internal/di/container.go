// Package di provides dependency injection configuration for bookly.
package di

import (
	"github.com/samber/do/v2"

	"github.com/booklyapp/bookly/internal/config"
	"github.com/booklyapp/bookly/internal/di/providers"
	"github.com/booklyapp/bookly/internal/logger"
	"github.com/booklyapp/bookly/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
// Providers are lazy: CLI commands only open what they touch.
func NewContainer(flags config.Flags) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, flags)
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideBackend)
	do.Provide(injector, providers.ProvideKeys)
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideUserBooks)
	do.Provide(injector, providers.ProvideOverlays)

	// Business services
	do.Provide(injector, providers.ProvideBus)
	do.Provide(injector, providers.ProvideCollectionService)
	do.Provide(injector, providers.ProvideOverlayService)
	do.Provide(injector, providers.ProvideShelfService)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Adapters and workers
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideSurface)
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideStorageWatcher)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Core holds the services every CLI command works with.
type Core struct {
	Collection *service.CollectionService
	Overlays   *service.OverlayService
	Shelf      *service.ShelfService
	Logger     *logger.Logger
}

// InvokeCore initializes storage and the domain services.
func InvokeCore(injector do.Injector) (*Core, error) {
	log, err := do.Invoke[*logger.Logger](injector)
	if err != nil {
		return nil, err
	}
	collection, err := do.Invoke[*service.CollectionService](injector)
	if err != nil {
		return nil, err
	}
	overlays, err := do.Invoke[*providers.OverlayServiceHandle](injector)
	if err != nil {
		return nil, err
	}
	shelf, err := do.Invoke[*service.ShelfService](injector)
	if err != nil {
		return nil, err
	}
	return &Core{
		Collection: collection,
		Overlays:   overlays.OverlayService,
		Shelf:      shelf,
		Logger:     log,
	}, nil
}

// Bootstrap initializes the server: storage, services, the event stream, the storage
// watcher, and the HTTP listener.
func Bootstrap(injector do.Injector) error {
	if _, err := InvokeCore(injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StorageWatcherHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	return nil
}
