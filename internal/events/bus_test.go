package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklyapp/bookly/internal/domain"
	"github.com/booklyapp/bookly/internal/store"
)

func TestBus_DeliversSynchronouslyInOrder(t *testing.T) {
	bus := NewBus(nil)

	var got []Type
	bus.Subscribe(func(e Event) { got = append(got, e.Type) })

	bus.Publish(NewBooksChanged())
	bus.Publish(NewStatusSet("S1", domain.StatusFinished))
	bus.Publish(NewStatusesChanged())

	// no waiting: delivery happened inside Publish
	assert.Equal(t, []Type{BooksChanged, StatusSet, StatusesChanged}, got)
}

func TestBus_TypeFilter(t *testing.T) {
	bus := NewBus(nil)

	var coarse, targeted int
	bus.Subscribe(func(Event) { coarse++ }, BooksChanged, RatingsChanged)
	bus.Subscribe(func(Event) { targeted++ }, StatusSet)

	bus.Publish(NewBooksChanged())
	bus.Publish(NewRatingsChanged())
	bus.Publish(NewPreferencesChanged())
	bus.Publish(NewStatusSet("S1", domain.StatusReading))

	assert.Equal(t, 2, coarse)
	assert.Equal(t, 1, targeted)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	calls := 0
	id := bus.Subscribe(func(Event) { calls++ })
	require.Equal(t, 1, bus.SubscriberCount())

	assert.True(t, bus.Unsubscribe(id))
	assert.False(t, bus.Unsubscribe(id))

	bus.Publish(NewBooksChanged())
	assert.Zero(t, calls)
	assert.Zero(t, bus.SubscriberCount())
}

func TestBus_PanickingSubscriberDoesNotStopOthers(t *testing.T) {
	bus := NewBus(nil)

	reached := false
	bus.Subscribe(func(Event) { panic("boom") })
	bus.Subscribe(func(Event) { reached = true })

	assert.NotPanics(t, func() { bus.Publish(NewBooksChanged()) })
	assert.True(t, reached)
}

func TestBus_HandlerMayUnsubscribeItself(t *testing.T) {
	bus := NewBus(nil)

	calls := 0
	var id string
	id = bus.Subscribe(func(Event) {
		calls++
		bus.Unsubscribe(id)
	})

	bus.Publish(NewBooksChanged())
	bus.Publish(NewBooksChanged())
	assert.Equal(t, 1, calls)
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	count := 0
	bus.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(NewRatingsChanged())
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, count)
}

func TestEvent_StatusDelta(t *testing.T) {
	d, ok := NewStatusSet("S1", domain.StatusFinished).StatusDelta()
	require.True(t, ok)
	assert.Equal(t, StatusSetData{ID: "S1", Status: domain.StatusFinished}, d)

	_, ok = NewBooksChanged().StatusDelta()
	assert.False(t, ok)

	assert.True(t, NewBooksChanged().Coarse())
	assert.False(t, NewStatusSet("S1", domain.StatusFinished).Coarse())
}

func TestForStorageKey(t *testing.T) {
	tests := []struct {
		key  string
		want Type
	}{
		{store.KeyUserBooks, BooksChanged},
		{store.KeyStatuses, StatusesChanged},
		{store.KeyRatings, RatingsChanged},
		{store.KeyFilters, PreferencesChanged},
		{store.KeySort, PreferencesChanged},
	}

	for _, tt := range tests {
		e, ok := ForStorageKey(tt.key)
		require.True(t, ok, tt.key)
		assert.Equal(t, tt.want, e.Type)
		assert.Equal(t, SourceStorage, e.Source)
		assert.True(t, e.Coarse())
	}

	_, ok := ForStorageKey("unrelated")
	assert.False(t, ok)
}
