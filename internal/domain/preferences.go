package domain

import "strings"

// Filters is the persisted shelf filter preference. Empty fields match everything.
type Filters struct {
	Query  string        `json:"query"`
	Status ReadingStatus `json:"status"`
	Genre  string        `json:"genre"`
}

// Normalized drops an unknown status filter.
func (f Filters) Normalized() Filters {
	if f.Status != "" {
		if s, ok := ParseStatus(string(f.Status)); ok {
			f.Status = s
		} else {
			f.Status = ""
		}
	}
	return f
}

// IsZero reports whether the filters match everything.
func (f Filters) IsZero() bool {
	return strings.TrimSpace(f.Query) == "" && f.Status == "" && f.Genre == ""
}

// SortField names the key the shelf is ordered by.
type SortField string

// Sort fields. SortAdded keeps catalog order: seed books first, then user books as created.
const (
	SortAdded    SortField = "added"
	SortTitle    SortField = "title"
	SortAuthor   SortField = "author"
	SortYear     SortField = "year"
	SortRating   SortField = "rating"
	SortPages    SortField = "pages"
	SortProgress SortField = "progress"
)

// Valid reports whether f names a known sort field, any case.
func (f SortField) Valid() bool {
	switch SortField(strings.ToLower(string(f))) {
	case SortAdded, SortTitle, SortAuthor, SortYear, SortRating, SortPages, SortProgress:
		return true
	default:
		return false
	}
}

// SortDirection is asc or desc.
type SortDirection string

// Sort directions.
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortPreference is the persisted shelf ordering.
type SortPreference struct {
	Field     SortField     `json:"field"`
	Direction SortDirection `json:"direction"`
}

// DefaultSort is catalog order, ascending.
func DefaultSort() SortPreference {
	return SortPreference{Field: SortAdded, Direction: SortAsc}
}

// Normalized replaces unknown fields or directions with the defaults.
func (s SortPreference) Normalized() SortPreference {
	if s.Field.Valid() {
		s.Field = SortField(strings.ToLower(string(s.Field)))
	} else {
		s.Field = SortAdded
	}
	switch SortDirection(strings.ToLower(string(s.Direction))) {
	case SortDesc:
		s.Direction = SortDesc
	default:
		s.Direction = SortAsc
	}
	return s
}

// Ownership tells who may edit a book.
type Ownership string

// Ownership values.
const (
	OwnerNone Ownership = "none"
	OwnerSeed Ownership = "seed"
	OwnerUser Ownership = "user"
)
