package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/booklyapp/bookly/internal/domain"
	"github.com/booklyapp/bookly/internal/normalize"
)

// DefaultLimit is used when a search asks for no limit.
const DefaultLimit = 20

// MaxLimit caps the number of hits per query.
const MaxLimit = 100

// Hit is one ranked search result.
type Hit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Result is a ranked list of books that are still live.
type Result struct {
	Query string        `json:"query"`
	Total uint64        `json:"total"`
	Hits  []Hit         `json:"hits"`
	Books []domain.Book `json:"books"`
}

// Search runs a full-text query and resolves the hits against the live collection.
// A blank query returns no hits.
func (s *Index) Search(ctx context.Context, q string, limit int) (*Result, error) {
	folded := normalize.Fold(q)
	result := &Result{Query: q, Hits: []Hit{}, Books: []domain.Book{}}
	if folded == "" {
		return result, nil
	}

	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	if err := s.ensureFresh(ctx); err != nil {
		return nil, fmt.Errorf("refresh index: %w", err)
	}

	req := bleve.NewSearchRequestOptions(buildQuery(folded), limit, 0, false)
	req.SortBy([]string{"-_score", "_id"})
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("title")
	req.Highlight.AddField("author")

	s.mu.RLock()
	res, err := s.index.SearchInContext(ctx, req)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result.Total = res.Total
	live := make(map[string]domain.Book)
	for _, b := range s.source.List(ctx) {
		live[b.ID] = b
	}

	for _, h := range res.Hits {
		b, ok := live[h.ID]
		if !ok {
			// deleted since the last rebuild
			continue
		}
		hit := Hit{ID: h.ID, Score: h.Score}
		if len(h.Fragments) > 0 {
			hit.Highlights = make(map[string]string, len(h.Fragments))
			for field, fragments := range h.Fragments {
				if len(fragments) > 0 {
					hit.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, hit)
		result.Books = append(result.Books, b)
	}
	return result, nil
}

// buildQuery matches title first, then author, then the descriptive fields.
// Title also gets fuzzy and prefix matching for typos and incremental typing.
func buildQuery(folded string) query.Query {
	var textQueries []query.Query

	field := func(name string, boost float64) {
		m := bleve.NewMatchQuery(folded)
		m.SetField(name)
		m.SetBoost(boost)
		textQueries = append(textQueries, m)
	}
	field("title", 3.0)
	field("author", 2.0)
	field("genre", 1.0)
	field("synopsis", 0.7)
	field("notes", 0.7)

	fuzzy := bleve.NewFuzzyQuery(folded)
	fuzzy.SetField("title")
	fuzzy.SetFuzziness(1)
	fuzzy.SetBoost(0.8)
	textQueries = append(textQueries, fuzzy)

	if len(folded) >= 2 && !strings.Contains(folded, " ") {
		prefix := bleve.NewPrefixQuery(folded)
		prefix.SetField("title")
		prefix.SetBoost(0.5)
		textQueries = append(textQueries, prefix)
	}

	isbn := bleve.NewTermQuery(strings.ReplaceAll(folded, "-", ""))
	isbn.SetField("isbn")
	isbn.SetBoost(5.0)
	textQueries = append(textQueries, isbn)

	return bleve.NewDisjunctionQuery(textQueries...)
}
