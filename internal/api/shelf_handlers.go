package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/booklyapp/bookly/internal/search"
	"github.com/booklyapp/bookly/internal/service"
)

func (s *Server) registerShelfRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getShelf",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelf",
		Summary:     "Get shelf",
		Description: "Returns the filtered and sorted shelf using the stored preferences",
		Tags:        []string{"Shelf"},
	}, s.handleGetShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "getDashboard",
		Method:      http.MethodGet,
		Path:        "/api/v1/dashboard",
		Summary:     "Get dashboard",
		Description: "Returns the collection counters",
		Tags:        []string{"Shelf"},
	}, s.handleGetDashboard)
}

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search books",
		Description: "Full-text search over title, author, genre, synopsis, notes and ISBN",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// ShelfOutput wraps the shelf view for Huma.
type ShelfOutput struct {
	Body service.ShelfView
}

// DashboardOutput wraps the counters for Huma.
type DashboardOutput struct {
	Body service.Dashboard
}

// SearchInput holds the query parameters of a search.
type SearchInput struct {
	Q     string `query:"q" maxLength:"200" doc:"Search text, accents and case are ignored"`
	Limit int    `query:"limit" minimum:"0" maximum:"100" default:"20" doc:"Maximum hits"`
}

// SearchOutput wraps the ranked result for Huma.
type SearchOutput struct {
	Body *search.Result
}

func (s *Server) handleGetShelf(ctx context.Context, _ *struct{}) (*ShelfOutput, error) {
	return &ShelfOutput{Body: s.services.Surface.View(ctx)}, nil
}

func (s *Server) handleGetDashboard(ctx context.Context, _ *struct{}) (*DashboardOutput, error) {
	return &DashboardOutput{Body: s.services.Surface.Dashboard(ctx)}, nil
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	result, err := s.services.Search.Search(ctx, input.Q, input.Limit)
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Body: result}, nil
}
