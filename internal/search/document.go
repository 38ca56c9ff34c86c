// Package search provides full-text search over the merged collection using Bleve.
package search

import (
	"github.com/booklyapp/bookly/internal/domain"
	"github.com/booklyapp/bookly/internal/normalize"
)

// Document is the indexed form of a book. Text fields are folded (lowercase, no
// accents) before indexing so queries match regardless of diacritics.
type Document struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Genre    string `json:"genre,omitempty"`
	Synopsis string `json:"synopsis,omitempty"`
	Notes    string `json:"notes,omitempty"`
	ISBN     string `json:"isbn,omitempty"`
	Year     int    `json:"year,omitempty"`
}

// FromBook converts a book to its search document.
func FromBook(b domain.Book) *Document {
	doc := &Document{
		ID:       b.ID,
		Title:    normalize.Fold(b.Title),
		Author:   normalize.Fold(b.Author),
		Genre:    normalize.Fold(b.Genre),
		Synopsis: normalize.Fold(b.Synopsis),
		Notes:    normalize.Fold(b.Notes),
		ISBN:     b.ISBN,
	}
	if b.Year != nil {
		doc.Year = *b.Year
	}
	return doc
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *Document) ToMap() map[string]any {
	m := map[string]any{
		"id":     d.ID,
		"title":  d.Title,
		"author": d.Author,
	}

	if d.Genre != "" {
		m["genre"] = d.Genre
	}
	if d.Synopsis != "" {
		m["synopsis"] = d.Synopsis
	}
	if d.Notes != "" {
		m["notes"] = d.Notes
	}
	if d.ISBN != "" {
		m["isbn"] = d.ISBN
	}
	if d.Year != 0 {
		m["year"] = d.Year
	}

	return m
}
