// Package seed holds the built-in catalog every collection starts from.
package seed

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/booklyapp/bookly/internal/domain"
	"github.com/booklyapp/bookly/internal/normalize"
)

//go:embed books.json
var embedded []byte

// Catalog is the immutable seed dataset. It is safe for concurrent use.
type Catalog struct {
	books []domain.Book
	index map[string]int
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, _ := Parse(embedded, nil)
	return c
}

// Load reads a catalog from path, or the embedded one when path is empty.
func Load(path string, logger *slog.Logger) (*Catalog, error) {
	if path == "" {
		return Parse(embedded, logger)
	}
	data, err := os.ReadFile(path) //#nosec G304 -- operator supplied seed file
	if err != nil {
		return nil, fmt.Errorf("read seed catalog: %w", err)
	}
	return Parse(data, logger)
}

// Parse builds a catalog from JSON. Invalid entries are dropped like any other untrusted data.
func Parse(data []byte, logger *slog.Logger) (*Catalog, error) {
	books, dropped := normalize.BooksJSON(data)
	if books == nil {
		return nil, fmt.Errorf("seed catalog is not a JSON array")
	}
	if dropped > 0 && logger != nil {
		logger.Warn("seed catalog entries dropped", "count", dropped)
	}

	c := &Catalog{
		books: books,
		index: make(map[string]int, len(books)),
	}
	for i, b := range books {
		c.index[b.ID] = i
	}
	return c, nil
}

// All returns the catalog in its fixed order. The slice and the books are copies.
func (c *Catalog) All() []domain.Book {
	out := make([]domain.Book, len(c.books))
	for i, b := range c.books {
		out[i] = b.Clone()
	}
	return out
}

// Has reports whether id belongs to the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Get returns a copy of the seed book with id.
func (c *Catalog) Get(id string) (domain.Book, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Book{}, false
	}
	return c.books[i].Clone(), true
}

// Len returns the number of seed books.
func (c *Catalog) Len() int {
	return len(c.books)
}
