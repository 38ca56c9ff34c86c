package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/booklyapp/bookly/internal/domain"
	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/logger"
)

// Source supplies the live collection. *service.CollectionService implements it.
type Source interface {
	List(ctx context.Context) []domain.Book
}

// Subscriber is the part of the bus the index listens on.
type Subscriber interface {
	Subscribe(handler events.Handler, types ...events.Type) string
	Unsubscribe(id string) bool
}

// Index wraps an in-memory Bleve index over the merged collection.
//
// A "books changed" notification only marks the index stale; the next query
// rebuilds it from the source. All public methods are safe for concurrent use.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	stale  bool
	source Source
	bus    Subscriber
	subID  string
	logger *slog.Logger

	rebuilds int
}

// NewIndex creates an empty index that fills itself on first query.
func NewIndex(source Source, bus Subscriber, log *slog.Logger) (*Index, error) {
	idx, err := newMemIndex()
	if err != nil {
		return nil, err
	}

	s := &Index{
		index:  idx,
		stale:  true,
		source: source,
		bus:    bus,
		logger: logger.OrDiscard(log),
	}
	if bus != nil {
		s.subID = bus.Subscribe(func(events.Event) { s.MarkStale() }, events.BooksChanged)
	}
	return s, nil
}

func newMemIndex() (bleve.Index, error) {
	m, err := buildIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("build mapping: %w", err)
	}
	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return idx, nil
}

// Close unsubscribes and releases the index.
func (s *Index) Close() error {
	if s.bus != nil {
		s.bus.Unsubscribe(s.subID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// MarkStale schedules a rebuild before the next query.
func (s *Index) MarkStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale = true
}

// Rebuild replaces the index contents with the current collection.
func (s *Index) Rebuild(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuildLocked(ctx)
}

// DocumentCount returns the number of indexed books.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuilds returns how many times the index was rebuilt.
func (s *Index) Rebuilds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rebuilds
}

func (s *Index) ensureFresh(ctx context.Context) error {
	s.mu.RLock()
	stale := s.stale
	s.mu.RUnlock()
	if !stale {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stale {
		return nil
	}
	return s.rebuildLocked(ctx)
}

func (s *Index) rebuildLocked(ctx context.Context) error {
	books := s.source.List(ctx)

	idx, err := newMemIndex()
	if err != nil {
		return err
	}

	batch := idx.NewBatch()
	for _, b := range books {
		doc := FromBook(b)
		if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
			_ = idx.Close()
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("commit batch: %w", err)
	}

	old := s.index
	s.index = idx
	s.stale = false
	s.rebuilds++
	if err := old.Close(); err != nil {
		s.logger.Warn("failed to close previous search index", "error", err)
	}

	s.logger.Debug("rebuilt search index", "documents", len(books))
	return nil
}
