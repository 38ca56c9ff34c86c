package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampRating(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
		ok   bool
	}{
		{in: 0, want: 0, ok: true},
		{in: 3.5, want: 3.5, ok: true},
		{in: 3.74, want: 3.5, ok: true},
		{in: 3.76, want: 4, ok: true},
		{in: 7, want: 5, ok: true},
		{in: -2, want: 0, ok: true},
		{in: math.NaN(), ok: false},
		{in: math.Inf(1), ok: false},
	}

	for _, tt := range tests {
		got, ok := ClampRating(tt.in)
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, "input %v", tt.in)
		}
	}
}

func TestClampPageCurrent(t *testing.T) {
	assert.Equal(t, 100, ClampPageCurrent(150, Ptr(100)))
	assert.Equal(t, 0, ClampPageCurrent(-3, Ptr(100)))
	assert.Equal(t, 42, ClampPageCurrent(42, Ptr(100)))
	assert.Equal(t, 5000, ClampPageCurrent(5000, nil))
	assert.Equal(t, 0, ClampPageCurrent(-1, nil))
}

func TestBook_CloneDoesNotAlias(t *testing.T) {
	b := Book{ID: "u1", Title: "T", Author: "A", Pages: Ptr(10), Rating: Ptr(2.0)}
	c := b.Clone()

	*c.Pages = 99
	*c.Rating = 5

	assert.Equal(t, 10, *b.Pages)
	assert.InDelta(t, 2.0, *b.Rating, 1e-9)
	assert.False(t, b.Equal(c))
}

func TestBook_Equal(t *testing.T) {
	a := Book{ID: "u1", Title: "T", Author: "A", Year: Ptr(1965)}
	b := Book{ID: "u1", Title: "T", Author: "A", Year: Ptr(1965)}
	assert.True(t, a.Equal(b))

	b.Year = nil
	assert.False(t, a.Equal(b))
}

func TestBook_Progress(t *testing.T) {
	assert.InDelta(t, 0.5, Book{Pages: Ptr(200), PageCurrent: Ptr(100)}.Progress(), 1e-9)
	assert.Zero(t, Book{PageCurrent: Ptr(100)}.Progress())
	assert.Zero(t, Book{Pages: Ptr(0), PageCurrent: Ptr(0)}.Progress())
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" lendo ")
	assert.True(t, ok)
	assert.Equal(t, StatusReading, s)

	_, ok = ParseStatus("DONE")
	assert.False(t, ok)

	assert.Equal(t, DefaultStatus, StatusOrDefault(""))
	assert.Equal(t, StatusPaused, StatusOrDefault("pausado"))
	assert.Len(t, Statuses(), 5)
	assert.Equal(t, "Lido", StatusFinished.Label())
}

func TestPreferences_Normalized(t *testing.T) {
	f := Filters{Query: "dune", Status: "bogus", Genre: "Sci-Fi"}.Normalized()
	assert.Equal(t, ReadingStatus(""), f.Status)
	assert.Equal(t, "dune", f.Query)

	f = Filters{Status: "lido"}.Normalized()
	assert.Equal(t, StatusFinished, f.Status)

	assert.True(t, Filters{Query: "  "}.IsZero())

	s := SortPreference{Field: "TITLE", Direction: "DESC"}.Normalized()
	assert.Equal(t, SortPreference{Field: SortTitle, Direction: SortDesc}, s)

	assert.Equal(t, DefaultSort(), SortPreference{Field: "color", Direction: "sideways"}.Normalized())
}
