package surface_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklyapp/bookly/internal/domain"
	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/seed"
	"github.com/booklyapp/bookly/internal/service"
	"github.com/booklyapp/bookly/internal/store"
	"github.com/booklyapp/bookly/internal/store/storetest"
	"github.com/booklyapp/bookly/internal/surface"
)

type fixture struct {
	bus        *events.Bus
	collection *service.CollectionService
	overlays   *service.OverlayService
	shelf      *service.ShelfService
}

func setup(t *testing.T) *fixture {
	t.Helper()
	mem := storetest.NewMemory()
	keys := store.NewKeys("bookly")
	bus := events.NewBus(nil)

	collection := service.NewCollectionService(seed.Default(), store.NewUserBooks(mem, keys, nil), bus, nil)
	overlays := service.NewOverlayService(collection, store.NewOverlays(mem, keys, nil), bus, nil)
	t.Cleanup(overlays.Close)

	return &fixture{
		bus:        bus,
		collection: collection,
		overlays:   overlays,
		shelf:      service.NewShelfService(collection, overlays),
	}
}

func (f *fixture) mount(t *testing.T, name string) *surface.Surface {
	t.Helper()
	s := surface.New(name, f.shelf, f.bus, nil)
	t.Cleanup(s.Close)
	return s
}

func TestSurface_ConvergesAfterEveryKindOfChange(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	list := f.mount(t, "list")
	dashboard := f.mount(t, "dashboard")

	// prime both caches
	list.View(ctx)
	dashboard.View(ctx)

	_, err := f.collection.Create(ctx, domain.Book{ID: "u1", Title: "Foo", Author: "Bar", Genre: "Poesia"})
	require.NoError(t, err)
	_, err = f.overlays.SetRating(ctx, "S3", 4)
	require.NoError(t, err)
	_, err = f.overlays.SetStatus(ctx, "S5", domain.StatusReading)
	require.NoError(t, err)
	_, err = f.overlays.SetStatus(ctx, "u1", domain.StatusFinished)
	require.NoError(t, err)
	_, err = f.overlays.SetSort(ctx, domain.SortPreference{Field: domain.SortTitle})
	require.NoError(t, err)
	_, err = f.collection.Delete(ctx, "u1")
	require.NoError(t, err)

	fresh := f.shelf.Shelf(ctx)
	assert.Equal(t, fresh, list.View(ctx))
	assert.Equal(t, fresh.Dashboard, dashboard.Dashboard(ctx))
}

func TestSurface_CoalescesCoarseSignals(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	s := f.mount(t, "list")
	s.View(ctx)
	require.Equal(t, 1, s.Recomputes())

	for range 5 {
		f.bus.Publish(events.NewBooksChanged())
		f.bus.Publish(events.NewRatingsChanged())
	}
	assert.Equal(t, 1, s.Recomputes())

	s.View(ctx)
	s.View(ctx)
	assert.Equal(t, 2, s.Recomputes())
}

func TestSurface_StatusSetPatchesInPlace(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	s := f.mount(t, "list")
	s.View(ctx)
	before := s.Revision()

	f.bus.Publish(events.NewStatusSet("S3", domain.StatusFinished))

	e, ok := s.Entry(ctx, "S3")
	require.True(t, ok)
	assert.Equal(t, domain.StatusFinished, e.Status)
	assert.InDelta(t, 1.0, e.Progress, 0.0001)
	assert.Equal(t, 1, s.Recomputes())
	assert.Greater(t, s.Revision(), before)
	assert.Equal(t, 4, s.Dashboard(ctx).Finished)
}

func TestSurface_StatusSetForUnknownIdIsNoop(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	s := f.mount(t, "list")
	view := s.View(ctx)
	rev := s.Revision()

	f.bus.Publish(events.NewStatusSet("ghost", domain.StatusFinished))

	assert.Equal(t, view, s.View(ctx))
	assert.Equal(t, rev, s.Revision())
	_, ok := s.Entry(ctx, "ghost")
	assert.False(t, ok)
}

func TestSurface_CloseStopsUpdates(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	s := f.mount(t, "list")
	view := s.View(ctx)

	s.Close()
	s.Close()

	_, err := f.collection.Create(ctx, domain.Book{ID: "u1", Title: "Foo", Author: "Bar"})
	require.NoError(t, err)

	assert.Equal(t, view.Total, s.View(ctx).Total)
}
