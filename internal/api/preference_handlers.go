package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/booklyapp/bookly/internal/domain"
)

func (s *Server) registerPreferenceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getFilters",
		Method:      http.MethodGet,
		Path:        "/api/v1/preferences/filters",
		Summary:     "Get filters",
		Description: "Returns the stored shelf filters",
		Tags:        []string{"Preferences"},
	}, s.handleGetFilters)

	huma.Register(s.api, huma.Operation{
		OperationID: "setFilters",
		Method:      http.MethodPut,
		Path:        "/api/v1/preferences/filters",
		Summary:     "Set filters",
		Description: "Replaces the stored shelf filters",
		Tags:        []string{"Preferences"},
	}, s.handleSetFilters)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSort",
		Method:      http.MethodGet,
		Path:        "/api/v1/preferences/sort",
		Summary:     "Get sort",
		Description: "Returns the stored shelf ordering",
		Tags:        []string{"Preferences"},
	}, s.handleGetSort)

	huma.Register(s.api, huma.Operation{
		OperationID: "setSort",
		Method:      http.MethodPut,
		Path:        "/api/v1/preferences/sort",
		Summary:     "Set sort",
		Description: "Replaces the stored shelf ordering",
		Tags:        []string{"Preferences"},
	}, s.handleSetSort)
}

// FiltersRequest is the body of a filters call. Empty fields match everything.
type FiltersRequest struct {
	Query  string `json:"query,omitempty" validate:"max=200" doc:"Text matched against title and author"`
	Status string `json:"status,omitempty" validate:"omitempty,status" doc:"Reading status"`
	Genre  string `json:"genre,omitempty" validate:"max=100" doc:"Exact genre"`
}

// SortRequest is the body of a sort call.
type SortRequest struct {
	Field     string `json:"field" validate:"required,sortfield" doc:"added, title, author, year, rating, pages or progress"`
	Direction string `json:"direction,omitempty" validate:"omitempty,oneof=asc desc ASC DESC" doc:"asc or desc"`
}

// FiltersInput wraps the filters request for Huma.
type FiltersInput struct {
	Body FiltersRequest
}

// SortInput wraps the sort request for Huma.
type SortInput struct {
	Body SortRequest
}

// FiltersOutput wraps the stored filters for Huma.
type FiltersOutput struct {
	Body domain.Filters
}

// SortOutput wraps the stored ordering for Huma.
type SortOutput struct {
	Body domain.SortPreference
}

func (s *Server) handleGetFilters(ctx context.Context, _ *struct{}) (*FiltersOutput, error) {
	return &FiltersOutput{Body: s.services.Overlays.Filters(ctx)}, nil
}

func (s *Server) handleSetFilters(ctx context.Context, input *FiltersInput) (*FiltersOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	saved, err := s.services.Overlays.SetFilters(ctx, domain.Filters{
		Query:  input.Body.Query,
		Status: domain.ReadingStatus(input.Body.Status),
		Genre:  input.Body.Genre,
	})
	if err != nil {
		return nil, err
	}
	return &FiltersOutput{Body: saved}, nil
}

func (s *Server) handleGetSort(ctx context.Context, _ *struct{}) (*SortOutput, error) {
	return &SortOutput{Body: s.services.Overlays.Sort(ctx)}, nil
}

func (s *Server) handleSetSort(ctx context.Context, input *SortInput) (*SortOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	saved, err := s.services.Overlays.SetSort(ctx, domain.SortPreference{
		Field:     domain.SortField(input.Body.Field),
		Direction: domain.SortDirection(input.Body.Direction),
	})
	if err != nil {
		return nil, err
	}
	return &SortOutput{Body: saved}, nil
}
