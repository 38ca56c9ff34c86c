package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/booklyapp/bookly/internal/domain"
	"github.com/booklyapp/bookly/internal/logger"
	"github.com/booklyapp/bookly/internal/metrics"
	"github.com/booklyapp/bookly/internal/normalize"
)

// UserBooks persists the user-created part of the collection under a single key.
type UserBooks struct {
	backend Backend
	key     string
	logger  *slog.Logger
}

// NewUserBooks creates the user collection repository.
func NewUserBooks(backend Backend, keys Keys, log *slog.Logger) *UserBooks {
	return &UserBooks{
		backend: backend,
		key:     keys.UserBooks(),
		logger:  logger.OrDiscard(log),
	}
}

// Key returns the storage key in use.
func (u *UserBooks) Key() string {
	return u.key
}

// Load reads and normalizes the user collection. It never fails: a missing,
// unreadable, or malformed value yields an empty collection.
func (u *UserBooks) Load(ctx context.Context) []domain.Book {
	data, err := u.backend.Get(ctx, u.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			u.logger.Warn("user books unreadable, treating as empty", "key", u.key, "error", err)
		}
		return []domain.Book{}
	}

	books, dropped := normalize.BooksJSON(data)
	if books == nil {
		u.logger.Warn("user books corrupt, treating as empty", "key", u.key)
		return []domain.Book{}
	}
	if dropped > 0 {
		u.logger.Debug("dropped invalid user books", "count", dropped)
		metrics.RecordDropped(KeyUserBooks, dropped)
	}
	return books
}

// Save normalizes every book and replaces the stored collection in one write.
func (u *UserBooks) Save(ctx context.Context, books []domain.Book) error {
	data, err := EncodeBooks(books)
	if err != nil {
		return err
	}
	if err := u.backend.Set(ctx, u.key, data); err != nil {
		return fmt.Errorf("save user books: %w", err)
	}
	return nil
}

// EncodeBooks normalizes books and serializes them as a JSON array.
// Invalid and repeated ids are dropped.
func EncodeBooks(books []domain.Book) ([]byte, error) {
	out := make([]domain.Book, 0, len(books))
	seen := make(map[string]struct{}, len(books))
	for _, b := range books {
		nb, ok := normalize.Normalize(b)
		if !ok {
			continue
		}
		if _, dup := seen[nb.ID]; dup {
			continue
		}
		seen[nb.ID] = struct{}{}
		out = append(out, nb)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode user books: %w", err)
	}
	return data, nil
}
