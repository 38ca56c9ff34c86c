// Package validation validates HTTP request bodies with validator/v10 and converts failures to domain errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/booklyapp/bookly/internal/domain"
	domainerrors "github.com/booklyapp/bookly/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the bookly tags registered:
//
//	status     a reading status, any case
//	isbn10or13 digits (and X) after removing hyphens and spaces
//	sortfield  a shelf sort field
func New() *Validator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	mustRegister(v, "status", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseStatus(fl.Field().String())
		return ok
	})
	mustRegister(v, "isbn10or13", func(fl validator.FieldLevel) bool {
		return validISBN(fl.Field().String())
	})
	mustRegister(v, "sortfield", func(fl validator.FieldLevel) bool {
		return domain.SortField(fl.Field().String()).Valid()
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// patchFields holds the values a merge patch sets. The rules match the create request.
type patchFields struct {
	Title       *string  `json:"title" validate:"omitnil,max=500"`
	Author      *string  `json:"author" validate:"omitnil,max=300"`
	Status      *string  `json:"status" validate:"omitnil,status"`
	Genre       *string  `json:"genre" validate:"omitnil,max=100"`
	Year        *int     `json:"year" validate:"omitnil,min=0,max=9999"`
	Pages       *int     `json:"pages" validate:"omitnil,min=0"`
	PageCurrent *int     `json:"pageCurrent" validate:"omitnil,min=0"`
	Rating      *float64 `json:"rating" validate:"omitnil,gte=0,lte=5"`
	ISBN        *string  `json:"isbn" validate:"omitempty,isbn10or13"`
	Cover       *string  `json:"cover" validate:"omitempty,url"`
}

func setValue[T any](o domain.Optional[T]) *T {
	if v, ok := o.Get(); ok {
		return &v
	}
	return nil
}

// ValidatePatch checks the fields a merge patch sets and returns the patch with its
// status in canonical form. Cleared fields are not checked.
func (v *Validator) ValidatePatch(patch domain.BookPatch) (domain.BookPatch, error) {
	fields := patchFields{
		Title:       setValue(patch.Title),
		Author:      setValue(patch.Author),
		Genre:       setValue(patch.Genre),
		Year:        setValue(patch.Year),
		Pages:       setValue(patch.Pages),
		PageCurrent: setValue(patch.PageCurrent),
		Rating:      setValue(patch.Rating),
		ISBN:        setValue(patch.ISBN),
		Cover:       setValue(patch.Cover),
	}
	if s, ok := patch.Status.Get(); ok {
		raw := string(s)
		fields.Status = &raw
	}
	if err := v.Validate(fields); err != nil {
		return patch, err
	}
	if s, ok := patch.Status.Get(); ok {
		status, _ := domain.ParseStatus(string(s))
		patch.Status = domain.Set(status)
	}
	return patch, nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = v.friendlyMessage(e)
	}

	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

func (v *Validator) friendlyMessage(e validator.FieldError) string {
	numeric := isNumeric(e.Kind())
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if numeric {
			return "must be at least " + e.Param()
		}
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		if numeric {
			return "must not exceed " + e.Param()
		}
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "status":
		statuses := domain.Statuses()
		names := make([]string, 0, len(statuses))
		for _, s := range statuses {
			names = append(names, string(s))
		}
		return "must be one of: " + strings.Join(names, " ")
	case "isbn10or13":
		return "must be a 10 or 13 digit ISBN"
	case "sortfield":
		return "must be a known sort field"
	default:
		return "is invalid"
	}
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func validISBN(raw string) bool {
	s := strings.NewReplacer("-", "", " ", "").Replace(raw)
	switch len(s) {
	case 10:
		for i, r := range s {
			if r == 'X' || r == 'x' {
				if i != 9 {
					return false
				}
				continue
			}
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	case 13:
		for _, r := range s {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	default:
		return false
	}
}
