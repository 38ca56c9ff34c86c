// Package normalize turns untrusted book data into values that the collection can store as is.
//
// Everything read from storage, the seed file, or an adapter passes through here. The
// functions are total: malformed input is repaired when possible and rejected otherwise,
// never reported as an error.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/booklyapp/bookly/internal/domain"
)

// Book converts a decoded JSON value into a Book. It reports false when the value is not
// an object or when id, title or author cannot be coerced to a non-empty string.
func Book(raw any) (domain.Book, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return domain.Book{}, false
	}

	b := domain.Book{
		ID:       coerceString(obj["id"]),
		Title:    coerceString(obj["title"]),
		Author:   coerceString(obj["author"]),
		Genre:    optionalString(obj["genre"]),
		ISBN:     optionalString(obj["isbn"]),
		Cover:    optionalString(obj["cover"]),
		Synopsis: optionalString(obj["synopsis"]),
		Notes:    optionalString(obj["notes"]),
	}

	if s, isString := obj["status"].(string); isString {
		b.Status = domain.ReadingStatus(s)
	}

	b.Year = optionalInt(obj["year"])
	b.Pages = optionalInt(obj["pages"])
	b.PageCurrent = optionalInt(obj["pageCurrent"])
	if _, present := obj["pageCurrent"]; !present {
		b.PageCurrent = optionalInt(obj["currentPage"])
	}
	b.Rating = optionalFloat(obj["rating"])

	return Normalize(b)
}

// BookJSON decodes data and normalizes it.
func BookJSON(data []byte) (domain.Book, bool) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Book{}, false
	}
	return Book(raw)
}

// Books normalizes a decoded JSON array. Anything but an array yields nil.
// Invalid elements and repeated ids (after the first) are dropped.
func Books(raw any) []domain.Book {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	out := make([]domain.Book, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		b, ok := Book(item)
		if !ok {
			continue
		}
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}
		out = append(out, b)
	}
	return out
}

// BooksJSON decodes data and normalizes the array it holds, reporting how many entries were dropped.
func BooksJSON(data []byte) (books []domain.Book, dropped int) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0
	}
	books = Books(raw)
	if items, ok := raw.([]any); ok {
		dropped = len(items) - len(books)
	}
	return books, dropped
}

// Normalize clamps and defaults an already typed book. It is idempotent.
func Normalize(b domain.Book) (domain.Book, bool) {
	b = b.Clone()

	b.ID = strings.TrimSpace(b.ID)
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	if b.ID == "" || b.Title == "" || b.Author == "" {
		return domain.Book{}, false
	}

	b.Status = domain.StatusOrDefault(string(b.Status))

	if b.Pages != nil && *b.Pages < 0 {
		*b.Pages = 0
	}
	if b.PageCurrent != nil {
		*b.PageCurrent = domain.ClampPageCurrent(*b.PageCurrent, b.Pages)
	}
	if b.Rating != nil {
		r, ok := domain.ClampRating(*b.Rating)
		if ok {
			*b.Rating = r
		} else {
			b.Rating = nil
		}
	}

	return b, true
}

// coerceString accepts strings and JSON numbers.
func coerceString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

func optionalString(v any) string {
	s, _ := v.(string)
	return s
}

func optionalInt(v any) *int {
	f, ok := finite(v)
	if !ok || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	n := int(math.Trunc(f))
	return &n
}

func optionalFloat(v any) *float64 {
	f, ok := finite(v)
	if !ok {
		return nil
	}
	return &f
}

func finite(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
