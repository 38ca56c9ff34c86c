package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/booklyapp/bookly/internal/domain"
	domainerrors "github.com/booklyapp/bookly/internal/errors"
	"github.com/booklyapp/bookly/internal/id"
	"github.com/booklyapp/bookly/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns the merged collection in catalog order with resolved status and rating",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book by ID",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Description:   "Adds a user-owned book. An ID is generated when none is given",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Applies a JSON merge patch to a user-owned book. null clears optional fields",
		Tags:        []string{"Books"},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBook",
		Method:        http.MethodDelete,
		Path:          "/api/v1/books/{id}",
		Summary:       "Delete book",
		Description:   "Removes a user-owned book",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "setBookRating",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/rating",
		Summary:     "Set rating",
		Description: "Sets the rating overlay for any book. A null rating clears the overlay",
		Tags:        []string{"Books"},
	}, s.handleSetRating)

	huma.Register(s.api, huma.Operation{
		OperationID: "setBookStatus",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/status",
		Summary:     "Set status",
		Description: "Sets the reading status of any book",
		Tags:        []string{"Books"},
	}, s.handleSetStatus)
}

// BookResponse is a book with its resolved status, rating, and ownership.
type BookResponse struct {
	Book     domain.Book          `json:"book" doc:"Stored book record"`
	Status   domain.ReadingStatus `json:"status" doc:"Resolved reading status"`
	Rating   float64              `json:"rating" doc:"Resolved rating, 0 when unrated"`
	Progress float64              `json:"progress" doc:"Fraction of pages read"`
	Owned    bool                 `json:"owned" doc:"True when the book can be edited and deleted"`
}

func newBookResponse(e service.Entry) BookResponse {
	return BookResponse{
		Book:     e.Book,
		Status:   e.Status,
		Rating:   e.Rating,
		Progress: e.Progress,
		Owned:    e.Owned,
	}
}

// BookIDInput identifies a book in the path.
type BookIDInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// ListBooksOutput wraps the collection for Huma.
type ListBooksOutput struct {
	Body struct {
		Books []BookResponse `json:"books" doc:"Books in catalog order"`
		Total int            `json:"total" doc:"Number of books"`
	}
}

// BookOutput wraps one book for Huma.
type BookOutput struct {
	Body BookResponse
}

// CreateBookRequest is the body of a create call.
type CreateBookRequest struct {
	ID          string   `json:"id,omitempty" validate:"omitempty,max=64,excludesall=: " doc:"Optional ID; generated when omitted"`
	Title       string   `json:"title" validate:"required,max=500" doc:"Title"`
	Author      string   `json:"author" validate:"required,max=300" doc:"Author"`
	Status      string   `json:"status,omitempty" validate:"omitempty,status" doc:"Reading status"`
	Genre       string   `json:"genre,omitempty" validate:"max=100" doc:"Genre"`
	Year        *int     `json:"year,omitempty" validate:"omitempty,min=0,max=9999" doc:"Publication year"`
	Pages       *int     `json:"pages,omitempty" validate:"omitempty,min=0" doc:"Page count"`
	PageCurrent *int     `json:"pageCurrent,omitempty" validate:"omitempty,min=0" doc:"Current page"`
	Rating      *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5" doc:"Rating from 0 to 5"`
	ISBN        string   `json:"isbn,omitempty" validate:"omitempty,isbn10or13" doc:"ISBN-10 or ISBN-13"`
	Cover       string   `json:"cover,omitempty" validate:"omitempty,url" doc:"Cover image URL"`
	Synopsis    string   `json:"synopsis,omitempty" doc:"Synopsis"`
	Notes       string   `json:"notes,omitempty" doc:"Private notes"`
}

func (r CreateBookRequest) toBook() domain.Book {
	return domain.Book{
		ID:          strings.TrimSpace(r.ID),
		Title:       r.Title,
		Author:      r.Author,
		Status:      domain.ReadingStatus(r.Status),
		Genre:       r.Genre,
		Year:        r.Year,
		Pages:       r.Pages,
		PageCurrent: r.PageCurrent,
		Rating:      r.Rating,
		ISBN:        r.ISBN,
		Cover:       r.Cover,
		Synopsis:    r.Synopsis,
		Notes:       r.Notes,
	}
}

// CreateBookInput wraps the create request for Huma.
type CreateBookInput struct {
	Body CreateBookRequest
}

// UpdateBookInput carries the raw merge patch so absent and null stay distinguishable.
type UpdateBookInput struct {
	ID      string `path:"id" doc:"Book ID"`
	RawBody []byte `contentType:"application/merge-patch+json"`
}

// SetRatingRequest is the body of a rating call.
type SetRatingRequest struct {
	Rating *float64 `json:"rating" required:"false" nullable:"true" validate:"omitempty,gte=0,lte=5" doc:"Rating from 0 to 5, snapped to half points. null clears it"`
}

// SetRatingInput wraps the rating request for Huma.
type SetRatingInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body SetRatingRequest
}

// SetStatusRequest is the body of a status call.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,status" doc:"QUERO_LER, LENDO, LIDO, PAUSADO or ABANDONADO"`
}

// SetStatusInput wraps the status request for Huma.
type SetStatusInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body SetStatusRequest
}

func (s *Server) handleListBooks(ctx context.Context, _ *struct{}) (*ListBooksOutput, error) {
	entries := s.services.Shelf.Entries(ctx)

	out := &ListBooksOutput{}
	out.Body.Books = make([]BookResponse, 0, len(entries))
	for _, e := range entries {
		out.Body.Books = append(out.Body.Books, newBookResponse(e))
	}
	out.Body.Total = len(entries)
	return out, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	return s.bookOutput(ctx, input.ID)
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	candidate := input.Body.toBook()
	if candidate.ID == "" {
		generated, err := id.NewBookID()
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to generate book ID")
		}
		candidate.ID = generated
	}
	if s.services.Collection.Ownership(ctx, candidate.ID) != domain.OwnerNone {
		return nil, domainerrors.Conflictf("book %s already exists", candidate.ID)
	}

	created, err := s.services.Collection.Create(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if created == nil {
		if s.services.Collection.Ownership(ctx, candidate.ID) != domain.OwnerNone {
			return nil, domainerrors.Conflictf("book %s already exists", candidate.ID)
		}
		return nil, domainerrors.Validation("book needs a non-blank id, title and author")
	}

	return s.bookOutput(ctx, created.ID)
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	if err := s.requireUserOwned(ctx, input.ID); err != nil {
		return nil, err
	}

	patch, err := domain.DecodePatch(input.RawBody)
	if err != nil {
		return nil, domainerrors.Validationf("invalid merge patch: %v", err)
	}
	if patch, err = s.validator.ValidatePatch(patch); err != nil {
		return nil, err
	}

	updated, err := s.services.Collection.Update(ctx, input.ID, patch)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Deleted in between, or nothing left to apply.
		return s.bookOutput(ctx, input.ID)
	}
	return s.bookOutput(ctx, updated.ID)
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*struct{}, error) {
	if err := s.requireUserOwned(ctx, input.ID); err != nil {
		return nil, err
	}

	deleted, err := s.services.Collection.Delete(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, domainerrors.NotFoundf("book %s not found", input.ID)
	}
	return nil, nil
}

func (s *Server) handleSetRating(ctx context.Context, input *SetRatingInput) (*BookOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	if _, ok := s.services.Collection.Get(ctx, input.ID); !ok {
		return nil, domainerrors.NotFoundf("book %s not found", input.ID)
	}

	if input.Body.Rating == nil {
		if _, err := s.services.Overlays.ClearRating(ctx, input.ID); err != nil {
			return nil, err
		}
		return s.bookOutput(ctx, input.ID)
	}

	changed, err := s.services.Overlays.SetRating(ctx, input.ID, *input.Body.Rating)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, domainerrors.NotFoundf("book %s not found", input.ID)
	}
	return s.bookOutput(ctx, input.ID)
}

func (s *Server) handleSetStatus(ctx context.Context, input *SetStatusInput) (*BookOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	status, _ := domain.ParseStatus(input.Body.Status)
	changed, err := s.services.Overlays.SetStatus(ctx, input.ID, status)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, domainerrors.NotFoundf("book %s not found", input.ID)
	}
	return s.bookOutput(ctx, input.ID)
}

// requireUserOwned maps ownership to the HTTP contract: unknown is 404, seed is 403.
func (s *Server) requireUserOwned(ctx context.Context, bookID string) error {
	switch s.services.Collection.Ownership(ctx, bookID) {
	case domain.OwnerUser:
		return nil
	case domain.OwnerSeed:
		return domainerrors.Forbiddenf("book %s belongs to the catalog and cannot be changed", bookID)
	default:
		return domainerrors.NotFoundf("book %s not found", bookID)
	}
}

func (s *Server) bookOutput(ctx context.Context, bookID string) (*BookOutput, error) {
	entry, ok := s.services.Surface.Entry(ctx, bookID)
	if !ok {
		return nil, domainerrors.NotFoundf("book %s not found", bookID)
	}
	return &BookOutput{Body: newBookResponse(entry)}, nil
}
