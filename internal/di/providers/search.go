package providers

import (
	"github.com/samber/do/v2"

	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/logger"
	"github.com/booklyapp/bookly/internal/search"
	"github.com/booklyapp/bookly/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the in-memory full-text index. It is built on first query.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	collection := do.MustInvoke[*service.CollectionService](i)
	bus := do.MustInvoke[*events.Bus](i)
	log := do.MustInvoke[*logger.Logger](i)

	idx, err := search.NewIndex(collection, bus, log.Component("search"))
	if err != nil {
		return nil, err
	}
	return &SearchIndexHandle{Index: idx}, nil
}
