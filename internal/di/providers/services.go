package providers

import (
	"github.com/samber/do/v2"

	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/logger"
	"github.com/booklyapp/bookly/internal/seed"
	"github.com/booklyapp/bookly/internal/service"
	"github.com/booklyapp/bookly/internal/store"
)

// ProvideBus provides the in-process notification bus.
func ProvideBus(i do.Injector) (*events.Bus, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return events.NewBus(log.Component("bus")), nil
}

// ProvideCollectionService provides the merged seed and user collection.
func ProvideCollectionService(i do.Injector) (*service.CollectionService, error) {
	catalog := do.MustInvoke[*seed.Catalog](i)
	users := do.MustInvoke[*store.UserBooks](i)
	bus := do.MustInvoke[*events.Bus](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewCollectionService(catalog, users, bus, log.Component("collection")), nil
}

// OverlayServiceHandle wraps the overlay service so its bus subscription is released.
type OverlayServiceHandle struct {
	*service.OverlayService
}

// Shutdown implements do.Shutdownable.
func (h *OverlayServiceHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideOverlayService provides the rating, status and preference overlays.
func ProvideOverlayService(i do.Injector) (*OverlayServiceHandle, error) {
	collection := do.MustInvoke[*service.CollectionService](i)
	overlays := do.MustInvoke[*store.Overlays](i)
	bus := do.MustInvoke[*events.Bus](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewOverlayService(collection, overlays, bus, log.Component("overlays"))
	return &OverlayServiceHandle{OverlayService: svc}, nil
}

// ProvideShelfService provides the derived shelf views.
func ProvideShelfService(i do.Injector) (*service.ShelfService, error) {
	collection := do.MustInvoke[*service.CollectionService](i)
	overlays := do.MustInvoke[*OverlayServiceHandle](i)
	return service.NewShelfService(collection, overlays.OverlayService), nil
}
