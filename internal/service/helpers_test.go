package service_test

import (
	"testing"

	"github.com/booklyapp/bookly/internal/domain"
	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/seed"
	"github.com/booklyapp/bookly/internal/service"
	"github.com/booklyapp/bookly/internal/store"
	"github.com/booklyapp/bookly/internal/store/storetest"
)

type testEnv struct {
	mem        *storetest.Memory
	keys       store.Keys
	bus        *events.Bus
	catalog    *seed.Catalog
	collection *service.CollectionService
	overlays   *service.OverlayService
	shelf      *service.ShelfService
	received   *[]events.Event
}

// setupTestEnv wires the services over an in-memory backend and records every event.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mem := storetest.NewMemory()
	keys := store.NewKeys("bookly")
	bus := events.NewBus(nil)
	catalog := seed.Default()

	collection := service.NewCollectionService(catalog, store.NewUserBooks(mem, keys, nil), bus, nil)
	overlays := service.NewOverlayService(collection, store.NewOverlays(mem, keys, nil), bus, nil)
	t.Cleanup(overlays.Close)

	received := &[]events.Event{}
	bus.Subscribe(func(e events.Event) { *received = append(*received, e) })

	return &testEnv{
		mem:        mem,
		keys:       keys,
		bus:        bus,
		catalog:    catalog,
		collection: collection,
		overlays:   overlays,
		shelf:      service.NewShelfService(collection, overlays),
		received:   received,
	}
}

func (e *testEnv) eventTypes() []events.Type {
	out := make([]events.Type, 0, len(*e.received))
	for _, ev := range *e.received {
		out = append(out, ev.Type)
	}
	return out
}

func (e *testEnv) resetEvents() {
	*e.received = (*e.received)[:0]
}

func ids(books []domain.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}
