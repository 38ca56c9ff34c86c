// Package domain contains the book collection entities shared by the store, services and adapters.
package domain

import (
	"math"
)

// Rating bounds. Ratings move in half-point steps.
const (
	MinRating  = 0.0
	MaxRating  = 5.0
	RatingStep = 0.5
)

// Book is one entry of the collection, either from the seed catalog or created by the user.
// Optional numeric fields are nil when absent; optional strings are empty when absent.
type Book struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Author      string        `json:"author"`
	Status      ReadingStatus `json:"status"`
	Genre       string        `json:"genre,omitempty"`
	Year        *int          `json:"year,omitempty"`
	Pages       *int          `json:"pages,omitempty"`
	PageCurrent *int          `json:"pageCurrent,omitempty"`
	Rating      *float64      `json:"rating,omitempty"`
	ISBN        string        `json:"isbn,omitempty"`
	Cover       string        `json:"cover,omitempty"`
	Synopsis    string        `json:"synopsis,omitempty"`
	Notes       string        `json:"notes,omitempty"`
}

// Clone returns a deep copy so callers can never alias stored pointers.
func (b Book) Clone() Book {
	c := b
	c.Year = clonePtr(b.Year)
	c.Pages = clonePtr(b.Pages)
	c.PageCurrent = clonePtr(b.PageCurrent)
	c.Rating = clonePtr(b.Rating)
	return c
}

// Equal reports whether two books carry the same values.
func (b Book) Equal(o Book) bool {
	return b.ID == o.ID &&
		b.Title == o.Title &&
		b.Author == o.Author &&
		b.Status == o.Status &&
		b.Genre == o.Genre &&
		equalPtr(b.Year, o.Year) &&
		equalPtr(b.Pages, o.Pages) &&
		equalPtr(b.PageCurrent, o.PageCurrent) &&
		equalPtr(b.Rating, o.Rating) &&
		b.ISBN == o.ISBN &&
		b.Cover == o.Cover &&
		b.Synopsis == o.Synopsis &&
		b.Notes == o.Notes
}

// Progress returns the read fraction in [0,1]. Unknown page counts yield 0.
func (b Book) Progress() float64 {
	if b.Pages == nil || *b.Pages <= 0 || b.PageCurrent == nil {
		return 0
	}
	return math.Min(1, float64(*b.PageCurrent)/float64(*b.Pages))
}

// ClampRating snaps r to the nearest half point inside [MinRating, MaxRating].
// Non-finite values are rejected.
func ClampRating(r float64) (float64, bool) {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	r = math.Round(r/RatingStep) * RatingStep
	return math.Max(MinRating, math.Min(MaxRating, r)), true
}

// ClampPageCurrent bounds current to [0, pages], or only from below when pages is unknown.
func ClampPageCurrent(current int, pages *int) int {
	current = max(current, 0)
	if pages != nil {
		current = min(current, *pages)
	}
	return current
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
