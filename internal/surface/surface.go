// Package surface keeps the derived shelf state a mounted view renders, and keeps it in
// step with the collection through bus notifications.
package surface

import (
	"context"
	"log/slog"
	"sync"

	"github.com/booklyapp/bookly/internal/domain"
	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/logger"
	"github.com/booklyapp/bookly/internal/service"
)

// Subscriber is the part of the bus a surface needs.
type Subscriber interface {
	Subscribe(handler events.Handler, types ...events.Type) string
	Unsubscribe(id string) bool
}

// Surface caches a shelf view.
//
// Coarse notifications only mark the cache dirty, so a burst of them costs one
// recomputation on the next read. A status.set notification patches the cached entry
// in place; an id the cache does not know is ignored.
type Surface struct {
	mu      sync.Mutex
	name    string
	shelf   *service.ShelfService
	bus     Subscriber
	logger  *slog.Logger
	subID   string
	dirty   bool
	closed  bool
	entries []service.Entry
	filters domain.Filters
	sort    domain.SortPreference
	view    service.ShelfView

	recomputes int
	revision   uint64
}

// New mounts a surface. It starts dirty and computes on first read.
func New(name string, shelf *service.ShelfService, bus Subscriber, log *slog.Logger) *Surface {
	s := &Surface{
		name:   name,
		shelf:  shelf,
		bus:    bus,
		logger: logger.OrDiscard(log).With("surface", name),
		dirty:  true,
	}
	s.subID = bus.Subscribe(s.handle,
		events.BooksChanged,
		events.StatusesChanged,
		events.RatingsChanged,
		events.PreferencesChanged,
		events.StatusSet,
	)
	return s
}

// Name returns the surface name.
func (s *Surface) Name() string { return s.name }

// Close unmounts the surface. Later notifications are not delivered.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.bus.Unsubscribe(s.subID)
}

// View returns the current shelf view, recomputing it if a notification invalidated it.
func (s *Surface) View(ctx context.Context) service.ShelfView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(ctx)
	return s.view
}

// Dashboard returns the counters of the current view.
func (s *Surface) Dashboard(ctx context.Context) service.Dashboard {
	return s.View(ctx).Dashboard
}

// Entry returns the cached entry for id, including entries hidden by the filters.
func (s *Surface) Entry(ctx context.Context, id string) (service.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(ctx)
	if i := service.EntryIndex(s.entries, id); i >= 0 {
		return s.entries[i], true
	}
	return service.Entry{}, false
}

// Invalidate marks the cache dirty.
func (s *Surface) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
	s.revision++
}

// Revision increases every time the surface's state may have changed.
func (s *Surface) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Recomputes returns how many full recomputations the surface did.
func (s *Surface) Recomputes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputes
}

func (s *Surface) handle(e events.Event) {
	if e.Coarse() {
		s.Invalidate()
		return
	}
	delta, ok := e.StatusDelta()
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		// the next read recomputes everything anyway
		return
	}
	i := service.EntryIndex(s.entries, delta.ID)
	if i < 0 {
		s.logger.Debug("status for unknown book ignored", "id", delta.ID)
		return
	}
	if s.entries[i].Status == delta.Status {
		return
	}
	s.entries[i] = s.entries[i].WithStatus(delta.Status)
	s.view = service.BuildShelf(s.entries, s.filters, s.sort, s.shelf.Language())
	s.revision++
}

func (s *Surface) refreshLocked(ctx context.Context) {
	if !s.dirty {
		return
	}
	s.entries = s.shelf.Entries(ctx)
	s.filters, s.sort = s.shelf.Preferences(ctx)
	s.view = service.BuildShelf(s.entries, s.filters, s.sort, s.shelf.Language())
	s.dirty = false
	s.recomputes++
}
