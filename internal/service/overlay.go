package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/booklyapp/bookly/internal/domain"
	domainerrors "github.com/booklyapp/bookly/internal/errors"
	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/logger"
	"github.com/booklyapp/bookly/internal/metrics"
	"github.com/booklyapp/bookly/internal/store"
)

// Broker publishes and subscribes. *events.Bus implements it.
type Broker interface {
	events.Publisher
	Subscribe(handler events.Handler, types ...events.Type) string
	Unsubscribe(id string) bool
}

// OverlayService owns the rating and status overlays and the shelf preferences.
// It is the only writer of those keys.
type OverlayService struct {
	mu         sync.Mutex
	collection *CollectionService
	overlays   *store.Overlays
	bus        Broker
	logger     *slog.Logger
	subID      string
}

// NewOverlayService creates the overlay service. It mirrors status changes made through
// the collection into the status overlay and drops stale entries when an id is reused.
func NewOverlayService(collection *CollectionService, overlays *store.Overlays, bus Broker, log *slog.Logger) *OverlayService {
	s := &OverlayService{
		collection: collection,
		overlays:   overlays,
		bus:        bus,
		logger:     logger.OrDiscard(log),
	}
	s.subID = bus.Subscribe(s.handle, events.StatusSet, events.BookCreated)
	return s
}

// Close stops listening to the collection.
func (s *OverlayService) Close() {
	s.bus.Unsubscribe(s.subID)
}

// Ratings returns the stored rating overlay. Entries may refer to books that no longer exist.
func (s *OverlayService) Ratings(ctx context.Context) map[string]float64 {
	return s.overlays.Ratings(ctx)
}

// Statuses returns the stored status overlay. Entries may refer to books that no longer exist.
func (s *OverlayService) Statuses(ctx context.Context) map[string]domain.ReadingStatus {
	return s.overlays.Statuses(ctx)
}

// Rating resolves the rating of a live book.
func (s *OverlayService) Rating(ctx context.Context, id string) (float64, bool) {
	b, ok := s.collection.Get(ctx, id)
	if !ok {
		return 0, false
	}
	return ResolveRating(b, s.overlays.Ratings(ctx)), true
}

// Status resolves the status of a live book.
func (s *OverlayService) Status(ctx context.Context, id string) (domain.ReadingStatus, bool) {
	b, ok := s.collection.Get(ctx, id)
	if !ok {
		return "", false
	}
	return ResolveStatus(b, s.overlays.Statuses(ctx)), true
}

// SetRating stores a rating for a live book, snapped to half points inside [0,5].
// Unknown ids are a no-op (false).
func (s *OverlayService) SetRating(ctx context.Context, id string, rating float64) (bool, error) {
	r, ok := domain.ClampRating(rating)
	if !ok {
		return false, domainerrors.Validationf("rating must be a number between %.0f and %.0f", domain.MinRating, domain.MaxRating)
	}
	if _, live := s.collection.Get(ctx, id); !live {
		metrics.RecordWrite("rating", metrics.ResultNoop)
		return false, nil
	}

	err := s.withLock(func() error {
		ratings := s.overlays.Ratings(ctx)
		ratings[id] = r
		return s.overlays.SaveRatings(ctx, ratings)
	})
	if err != nil {
		return false, s.writeFailed("rating", err)
	}

	metrics.RecordWrite("rating", metrics.ResultOK)
	s.bus.Publish(events.NewRatingsChanged())
	return true, nil
}

// ClearRating removes the overlay entry so the book's own rating (or 0) applies again.
func (s *OverlayService) ClearRating(ctx context.Context, id string) (bool, error) {
	removed := false
	err := s.withLock(func() error {
		ratings := s.overlays.Ratings(ctx)
		if _, ok := ratings[id]; !ok {
			return nil
		}
		delete(ratings, id)
		removed = true
		return s.overlays.SaveRatings(ctx, ratings)
	})
	if err != nil {
		return false, s.writeFailed("rating", err)
	}
	if !removed {
		metrics.RecordWrite("rating", metrics.ResultNoop)
		return false, nil
	}

	metrics.RecordWrite("rating", metrics.ResultOK)
	s.bus.Publish(events.NewRatingsChanged())
	return true, nil
}

// SetStatus changes the status of a live book. Seed books only get an overlay entry.
// User books get the overlay entry first and are then updated through the collection;
// if that update fails the overlay entry is put back. Unknown ids are a no-op (false).
func (s *OverlayService) SetStatus(ctx context.Context, id string, status domain.ReadingStatus) (bool, error) {
	status = domain.StatusOrDefault(string(status))

	switch s.collection.Ownership(ctx, id) {
	case domain.OwnerUser:
		var (
			prev    domain.ReadingStatus
			hadPrev bool
		)
		err := s.withLock(func() error {
			statuses := s.overlays.Statuses(ctx)
			prev, hadPrev = statuses[id]
			statuses[id] = status
			return s.overlays.SaveStatuses(ctx, statuses)
		})
		if err != nil {
			return false, s.writeFailed("status", err)
		}

		updated, err := s.collection.Update(ctx, id, domain.BookPatch{Status: domain.Set(status)})
		if err != nil || updated == nil {
			s.restoreStatus(ctx, id, prev, hadPrev)
			return false, err
		}
		metrics.RecordWrite("status", metrics.ResultOK)
		s.bus.Publish(events.NewStatusesChanged())
		return true, nil

	case domain.OwnerSeed:
		err := s.withLock(func() error {
			statuses := s.overlays.Statuses(ctx)
			statuses[id] = status
			return s.overlays.SaveStatuses(ctx, statuses)
		})
		if err != nil {
			return false, s.writeFailed("status", err)
		}
		metrics.RecordWrite("status", metrics.ResultOK)
		s.bus.Publish(events.NewStatusSet(id, status))
		s.bus.Publish(events.NewStatusesChanged())
		return true, nil

	default:
		metrics.RecordWrite("status", metrics.ResultNoop)
		return false, nil
	}
}

// Filters returns the stored filter preference.
func (s *OverlayService) Filters(ctx context.Context) domain.Filters {
	return s.overlays.Filters(ctx)
}

// SetFilters stores the filter preference.
func (s *OverlayService) SetFilters(ctx context.Context, f domain.Filters) (domain.Filters, error) {
	f = f.Normalized()
	if err := s.withLock(func() error { return s.overlays.SaveFilters(ctx, f) }); err != nil {
		return domain.Filters{}, s.writeFailed("filters", err)
	}
	metrics.RecordWrite("filters", metrics.ResultOK)
	s.bus.Publish(events.NewPreferencesChanged())
	return f, nil
}

// Sort returns the stored sort preference.
func (s *OverlayService) Sort(ctx context.Context) domain.SortPreference {
	return s.overlays.Sort(ctx)
}

// SetSort stores the sort preference.
func (s *OverlayService) SetSort(ctx context.Context, pref domain.SortPreference) (domain.SortPreference, error) {
	pref = pref.Normalized()
	if err := s.withLock(func() error { return s.overlays.SaveSort(ctx, pref) }); err != nil {
		return domain.SortPreference{}, s.writeFailed("sort", err)
	}
	metrics.RecordWrite("sort", metrics.ResultOK)
	s.bus.Publish(events.NewPreferencesChanged())
	return pref, nil
}

// restoreStatus puts back the overlay entry that SetStatus replaced.
func (s *OverlayService) restoreStatus(ctx context.Context, id string, prev domain.ReadingStatus, hadPrev bool) {
	err := s.withLock(func() error {
		statuses := s.overlays.Statuses(ctx)
		if hadPrev {
			statuses[id] = prev
		} else {
			delete(statuses, id)
		}
		return s.overlays.SaveStatuses(ctx, statuses)
	})
	if err != nil {
		s.logger.Error("status overlay rollback failed", "id", id, "error", err)
	}
}

func (s *OverlayService) handle(e events.Event) {
	if id, ok := e.CreatedID(); ok {
		s.onBookCreated(id)
		return
	}
	if delta, ok := e.StatusDelta(); ok {
		s.onStatusSet(delta)
	}
}

// onBookCreated drops overlay entries left behind by an earlier book with the same id,
// so the new book starts from its own rating and status.
func (s *OverlayService) onBookCreated(id string) {
	ctx := context.Background()

	var ratingDropped, statusDropped bool
	err := s.withLock(func() error {
		ratings := s.overlays.Ratings(ctx)
		if _, ok := ratings[id]; ok {
			delete(ratings, id)
			if err := s.overlays.SaveRatings(ctx, ratings); err != nil {
				return err
			}
			ratingDropped = true
		}
		statuses := s.overlays.Statuses(ctx)
		if _, ok := statuses[id]; ok {
			delete(statuses, id)
			if err := s.overlays.SaveStatuses(ctx, statuses); err != nil {
				return err
			}
			statusDropped = true
		}
		return nil
	})
	if err != nil {
		s.logger.Error("stale overlay cleanup failed", "id", id, "error", err)
	}
	if ratingDropped {
		s.logger.Debug("stale rating dropped", "id", id)
		s.bus.Publish(events.NewRatingsChanged())
	}
	if statusDropped {
		s.logger.Debug("stale status dropped", "id", id)
		s.bus.Publish(events.NewStatusesChanged())
	}
}

// onStatusSet mirrors a user book's new status into the overlay so the two locations
// never disagree. Seed ids are ignored: their overlay entry is the status.
func (s *OverlayService) onStatusSet(delta events.StatusSetData) {
	ctx := context.Background()
	if !s.collection.IsUserOwned(ctx, delta.ID) {
		return
	}

	changed := false
	err := s.withLock(func() error {
		statuses := s.overlays.Statuses(ctx)
		if cur, ok := statuses[delta.ID]; ok && cur == delta.Status {
			return nil
		}
		statuses[delta.ID] = delta.Status
		changed = true
		return s.overlays.SaveStatuses(ctx, statuses)
	})
	if err != nil {
		s.logger.Error("status overlay sync failed", "id", delta.ID, "error", err)
		return
	}
	if changed {
		s.bus.Publish(events.NewStatusesChanged())
	}
}

func (s *OverlayService) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *OverlayService) writeFailed(op string, err error) error {
	metrics.RecordWrite(op, metrics.ResultFailed)
	s.logger.Error("overlay write failed", "op", op, "error", err)
	return domainerrors.Storage(err, "could not save "+op)
}
