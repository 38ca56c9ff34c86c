package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

type optionalState uint8

const (
	optionalAbsent optionalState = iota
	optionalSet
	optionalClear
)

// Optional is one field of a merge patch: absent, set to a value, or explicitly cleared.
// In JSON a missing key is absent and null is a clear.
type Optional[T any] struct {
	value T
	state optionalState
}

// Set returns an Optional carrying v.
func Set[T any](v T) Optional[T] {
	return Optional[T]{value: v, state: optionalSet}
}

// Clear returns an Optional that removes the field.
func Clear[T any]() Optional[T] {
	return Optional[T]{state: optionalClear}
}

// IsAbsent reports whether the field was left out of the patch.
func (o Optional[T]) IsAbsent() bool { return o.state == optionalAbsent }

// IsSet reports whether the patch replaces the field.
func (o Optional[T]) IsSet() bool { return o.state == optionalSet }

// IsClear reports whether the patch removes the field.
func (o Optional[T]) IsClear() bool { return o.state == optionalClear }

// Get returns the value and whether it is set.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.state == optionalSet
}

// UnmarshalJSON implements json.Unmarshaler. It is only invoked for keys present in the input.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Clear[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Set(v)
	return nil
}

// BookPatch is a partial update of a user-owned book. The id is never patched.
type BookPatch struct {
	Title       Optional[string]        `json:"title"`
	Author      Optional[string]        `json:"author"`
	Status      Optional[ReadingStatus] `json:"status"`
	Genre       Optional[string]        `json:"genre"`
	Year        Optional[int]           `json:"year"`
	Pages       Optional[int]           `json:"pages"`
	PageCurrent Optional[int]           `json:"pageCurrent"`
	Rating      Optional[float64]       `json:"rating"`
	ISBN        Optional[string]        `json:"isbn"`
	Cover       Optional[string]        `json:"cover"`
	Synopsis    Optional[string]        `json:"synopsis"`
	Notes       Optional[string]        `json:"notes"`
}

// DecodePatch parses a JSON merge patch. Unknown keys are ignored.
func DecodePatch(data []byte) (BookPatch, error) {
	var p BookPatch
	if len(bytes.TrimSpace(data)) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return BookPatch{}, err
	}
	return p, nil
}

// Apply merges the patch over prev and returns the result without clamping or validation.
// Required fields ignore clears and blank values.
func (p BookPatch) Apply(prev Book) Book {
	next := prev.Clone()

	if v, ok := p.Title.Get(); ok && strings.TrimSpace(v) != "" {
		next.Title = v
	}
	if v, ok := p.Author.Get(); ok && strings.TrimSpace(v) != "" {
		next.Author = v
	}
	if v, ok := p.Status.Get(); ok {
		next.Status = v
	}

	applyString(&next.Genre, p.Genre)
	applyString(&next.ISBN, p.ISBN)
	applyString(&next.Cover, p.Cover)
	applyString(&next.Synopsis, p.Synopsis)
	applyString(&next.Notes, p.Notes)

	applyPtr(&next.Year, p.Year)
	applyPtr(&next.Pages, p.Pages)
	applyPtr(&next.PageCurrent, p.PageCurrent)
	applyPtr(&next.Rating, p.Rating)

	return next
}

func applyString(dst *string, o Optional[string]) {
	switch {
	case o.IsClear():
		*dst = ""
	case o.IsSet():
		*dst = o.value
	}
}

func applyPtr[T any](dst **T, o Optional[T]) {
	switch {
	case o.IsClear():
		*dst = nil
	case o.IsSet():
		v := o.value
		*dst = &v
	}
}
