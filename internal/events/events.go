// Package events carries change notifications between the collection services and the
// surfaces that render derived state.
package events

import (
	"time"

	"github.com/booklyapp/bookly/internal/domain"
	"github.com/booklyapp/bookly/internal/store"
)

// Type names a notification.
type Type string

const (
	// BooksChanged means the merged collection may differ. Payload-free.
	BooksChanged Type = "books.changed"
	// StatusesChanged means the status overlay may differ. Payload-free.
	StatusesChanged Type = "statuses.changed"
	// RatingsChanged means the rating overlay may differ. Payload-free.
	RatingsChanged Type = "ratings.changed"
	// PreferencesChanged means the stored filters or sort may differ. Payload-free.
	PreferencesChanged Type = "preferences.changed"

	// StatusSet is the targeted delta carrying {id, status}.
	StatusSet Type = "status.set"
	// BookCreated carries the id of a book that was just added.
	BookCreated Type = "book.created"

	// Heartbeat keeps event streams alive. Never published on the bus.
	Heartbeat Type = "heartbeat"
)

// Sources of an event.
const (
	SourceLocal   = "local"
	SourceStorage = "storage"
)

// Event is one notification.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Type      Type      `json:"type"`
	Source    string    `json:"source"`
}

// StatusSetData is the payload of a StatusSet event.
type StatusSetData struct {
	ID     string               `json:"id"`
	Status domain.ReadingStatus `json:"status"`
}

// BookCreatedData is the payload of a BookCreated event.
type BookCreatedData struct {
	ID string `json:"id"`
}

// Coarse reports whether the event only says "something changed, re-read".
func (e Event) Coarse() bool {
	switch e.Type {
	case BooksChanged, StatusesChanged, RatingsChanged, PreferencesChanged:
		return true
	default:
		return false
	}
}

// StatusDelta returns the payload of a StatusSet event.
func (e Event) StatusDelta() (StatusSetData, bool) {
	if e.Type != StatusSet {
		return StatusSetData{}, false
	}
	d, ok := e.Data.(StatusSetData)
	return d, ok
}

// CreatedID returns the id carried by a BookCreated event.
func (e Event) CreatedID() (string, bool) {
	if e.Type != BookCreated {
		return "", false
	}
	d, ok := e.Data.(BookCreatedData)
	return d.ID, ok
}

func newEvent(t Type, data any) Event {
	return Event{Timestamp: time.Now(), Type: t, Data: data, Source: SourceLocal}
}

// NewBooksChanged creates a BooksChanged event.
func NewBooksChanged() Event { return newEvent(BooksChanged, nil) }

// NewStatusesChanged creates a StatusesChanged event.
func NewStatusesChanged() Event { return newEvent(StatusesChanged, nil) }

// NewRatingsChanged creates a RatingsChanged event.
func NewRatingsChanged() Event { return newEvent(RatingsChanged, nil) }

// NewPreferencesChanged creates a PreferencesChanged event.
func NewPreferencesChanged() Event { return newEvent(PreferencesChanged, nil) }

// NewStatusSet creates the targeted status delta.
func NewStatusSet(id string, status domain.ReadingStatus) Event {
	return newEvent(StatusSet, StatusSetData{ID: id, Status: status})
}

// NewBookCreated creates the targeted creation notice.
func NewBookCreated(id string) Event {
	return newEvent(BookCreated, BookCreatedData{ID: id})
}

// NewHeartbeat creates a keepalive event for streams.
func NewHeartbeat() Event { return newEvent(Heartbeat, nil) }

// ForStorageKey maps a storage key name (without namespace) to the coarse event that
// a write to it is equivalent to.
func ForStorageKey(name string) (Event, bool) {
	var t Type
	switch name {
	case store.KeyUserBooks:
		t = BooksChanged
	case store.KeyStatuses:
		t = StatusesChanged
	case store.KeyRatings:
		t = RatingsChanged
	case store.KeyFilters, store.KeySort:
		t = PreferencesChanged
	default:
		return Event{}, false
	}
	e := newEvent(t, nil)
	e.Source = SourceStorage
	return e, true
}
