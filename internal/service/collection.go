// Package service holds the rules of the book collection: how the seed catalog and the
// user's books merge, who may change what, and how overlays resolve.
package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/booklyapp/bookly/internal/domain"
	domainerrors "github.com/booklyapp/bookly/internal/errors"
	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/logger"
	"github.com/booklyapp/bookly/internal/metrics"
	"github.com/booklyapp/bookly/internal/normalize"
	"github.com/booklyapp/bookly/internal/seed"
	"github.com/booklyapp/bookly/internal/store"
)

// CollectionService is the single source of truth for the merged collection.
// Reads always go to storage, so a successful write is visible to the next List.
type CollectionService struct {
	// mu serializes read-modify-write cycles on the user store.
	mu      sync.Mutex
	catalog *seed.Catalog
	users   *store.UserBooks
	bus     events.Publisher
	logger  *slog.Logger
}

// NewCollectionService creates a new collection service.
func NewCollectionService(catalog *seed.Catalog, users *store.UserBooks, bus events.Publisher, log *slog.Logger) *CollectionService {
	if bus == nil {
		bus = events.NoopPublisher{}
	}
	return &CollectionService{
		catalog: catalog,
		users:   users,
		bus:     bus,
		logger:  logger.OrDiscard(log),
	}
}

// Catalog returns the seed catalog.
func (s *CollectionService) Catalog() *seed.Catalog {
	return s.catalog
}

// List returns seed books in catalog order followed by user books in creation order.
// A user record carrying a seed id takes the seed book's place.
func (s *CollectionService) List(ctx context.Context) []domain.Book {
	books, _ := s.Snapshot(ctx)
	return books
}

// Snapshot returns the merged collection together with the set of user-owned ids,
// both read from the same load.
func (s *CollectionService) Snapshot(ctx context.Context) ([]domain.Book, map[string]bool) {
	userBooks := s.users.Load(ctx)
	seedBooks := s.catalog.All()

	byID := make(map[string]domain.Book, len(userBooks))
	for _, b := range userBooks {
		byID[b.ID] = b
	}

	out := make([]domain.Book, 0, len(seedBooks)+len(userBooks))
	for _, sb := range seedBooks {
		if shadow, ok := byID[sb.ID]; ok {
			out = append(out, shadow)
			continue
		}
		out = append(out, sb)
	}

	owned := make(map[string]bool, len(userBooks))
	for _, ub := range userBooks {
		if s.catalog.Has(ub.ID) {
			continue
		}
		out = append(out, ub)
		owned[ub.ID] = true
	}
	return out, owned
}

// Get returns the live book with id.
func (s *CollectionService) Get(ctx context.Context, id string) (domain.Book, bool) {
	for _, b := range s.List(ctx) {
		if b.ID == id {
			return b, true
		}
	}
	return domain.Book{}, false
}

// IsUserOwned reports whether id may be edited or deleted: it must be in the user
// store and not in the seed catalog.
func (s *CollectionService) IsUserOwned(ctx context.Context, id string) bool {
	if s.catalog.Has(id) {
		return false
	}
	return indexOf(s.users.Load(ctx), id) >= 0
}

// Ownership classifies id for adapters that need to tell "forbidden" from "missing".
func (s *CollectionService) Ownership(ctx context.Context, id string) domain.Ownership {
	switch {
	case s.catalog.Has(id):
		return domain.OwnerSeed
	case s.IsUserOwned(ctx, id):
		return domain.OwnerUser
	default:
		return domain.OwnerNone
	}
}

// Create appends a new user book. Malformed candidates and ids already present in the
// collection are dropped without error (nil result). A storage failure returns a
// CodeStorage error and changes nothing.
func (s *CollectionService) Create(ctx context.Context, candidate domain.Book) (*domain.Book, error) {
	book, ok := normalize.Normalize(candidate)
	if !ok {
		s.logger.Debug("create dropped malformed book", "id", candidate.ID)
		metrics.RecordWrite("create", metrics.ResultNoop)
		return nil, nil
	}
	if s.catalog.Has(book.ID) {
		s.logger.Warn("create rejected: id belongs to the seed catalog", "id", book.ID)
		metrics.RecordWrite("create", metrics.ResultNoop)
		return nil, nil
	}

	changed, err := s.mutate(ctx, "create", func(books []domain.Book) ([]domain.Book, bool) {
		if indexOf(books, book.ID) >= 0 {
			s.logger.Warn("create rejected: duplicate id", "id", book.ID)
			return books, false
		}
		return append(books, book), true
	})
	if err != nil || !changed {
		return nil, err
	}

	s.logger.Info("book created", "id", book.ID, "title", book.Title)
	s.bus.Publish(events.NewBookCreated(book.ID))
	s.bus.Publish(events.NewBooksChanged())
	return &book, nil
}

// Update merges patch into a user-owned book. Seed or unknown ids are a no-op.
// pageCurrent is re-clamped against the resulting pages and status is re-validated.
func (s *CollectionService) Update(ctx context.Context, id string, patch domain.BookPatch) (*domain.Book, error) {
	if s.catalog.Has(id) {
		metrics.RecordWrite("update", metrics.ResultNoop)
		return nil, nil
	}

	var (
		updated       domain.Book
		statusTouched bool
	)
	changed, err := s.mutate(ctx, "update", func(books []domain.Book) ([]domain.Book, bool) {
		i := indexOf(books, id)
		if i < 0 {
			return books, false
		}
		prev := books[i]
		next, ok := normalize.Normalize(patch.Apply(prev))
		if !ok {
			return books, false
		}
		statusTouched = next.Status != prev.Status
		books[i] = next
		updated = next
		return books, true
	})
	if err != nil || !changed {
		return nil, err
	}

	s.logger.Debug("book updated", "id", id)
	s.bus.Publish(events.NewBooksChanged())
	if statusTouched {
		s.bus.Publish(events.NewStatusSet(id, updated.Status))
	}
	return &updated, nil
}

// Delete removes a user-owned book. Seed or unknown ids are a no-op (false).
// Overlay entries for the id are left in place and ignored from then on.
func (s *CollectionService) Delete(ctx context.Context, id string) (bool, error) {
	if s.catalog.Has(id) {
		metrics.RecordWrite("delete", metrics.ResultNoop)
		return false, nil
	}

	changed, err := s.mutate(ctx, "delete", func(books []domain.Book) ([]domain.Book, bool) {
		i := indexOf(books, id)
		if i < 0 {
			return books, false
		}
		return slices.Delete(books, i, i+1), true
	})
	if err != nil || !changed {
		return false, err
	}

	s.logger.Info("book deleted", "id", id)
	s.bus.Publish(events.NewBooksChanged())
	return true, nil
}

// mutate runs fn over the current user books under the write lock and persists the
// result when fn reports a change.
func (s *CollectionService) mutate(ctx context.Context, op string, fn func([]domain.Book) ([]domain.Book, bool)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, changed := fn(s.users.Load(ctx))
	if !changed {
		metrics.RecordWrite(op, metrics.ResultNoop)
		return false, nil
	}

	if err := s.users.Save(ctx, next); err != nil {
		metrics.RecordWrite(op, metrics.ResultFailed)
		s.logger.Error("collection write failed", "op", op, "error", err)
		return false, domainerrors.Storage(err, "could not save the collection")
	}

	metrics.RecordWrite(op, metrics.ResultOK)
	return true, nil
}

func indexOf(books []domain.Book, id string) int {
	return slices.IndexFunc(books, func(b domain.Book) bool { return b.ID == id })
}
