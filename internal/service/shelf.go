package service

import (
	"cmp"
	"context"
	"slices"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/booklyapp/bookly/internal/domain"
	"github.com/booklyapp/bookly/internal/normalize"
)

// Entry is a live book with its overlays resolved.
type Entry struct {
	Book     domain.Book          `json:"book"`
	Status   domain.ReadingStatus `json:"status"`
	Rating   float64              `json:"rating"`
	Progress float64              `json:"progress"`
	Owned    bool                 `json:"owned"`
	// Position is the index in the merged collection, used for catalog order.
	Position int `json:"position"`
}

// Dashboard holds the counters shown above the shelf.
type Dashboard struct {
	Total      int                          `json:"total"`
	WantToRead int                          `json:"wantToRead"`
	Reading    int                          `json:"reading"`
	Finished   int                          `json:"finished"`
	ByStatus   map[domain.ReadingStatus]int `json:"byStatus"`
	// PagesRead sums the pages of finished books.
	PagesRead     int     `json:"pagesRead"`
	Rated         int     `json:"rated"`
	AverageRating float64 `json:"averageRating"`
}

// ShelfView is the filtered and sorted shelf plus the data its controls need.
type ShelfView struct {
	Entries   []Entry               `json:"entries"`
	Count     int                   `json:"count"`
	Total     int                   `json:"total"`
	Genres    []string              `json:"genres"`
	Filters   domain.Filters        `json:"filters"`
	Sort      domain.SortPreference `json:"sort"`
	Dashboard Dashboard             `json:"dashboard"`
}

// ShelfService computes derived views from the collection and the overlays.
type ShelfService struct {
	collection *CollectionService
	overlays   *OverlayService
	lang       language.Tag
}

// NewShelfService creates a shelf service. Titles and authors sort by Portuguese collation.
func NewShelfService(collection *CollectionService, overlays *OverlayService) *ShelfService {
	return &ShelfService{
		collection: collection,
		overlays:   overlays,
		lang:       language.BrazilianPortuguese,
	}
}

// Entries resolves every live book.
func (s *ShelfService) Entries(ctx context.Context) []Entry {
	books, owned := s.collection.Snapshot(ctx)
	return BuildEntries(books, owned, s.overlays.Ratings(ctx), s.overlays.Statuses(ctx))
}

// Shelf applies the stored preferences to the resolved entries.
func (s *ShelfService) Shelf(ctx context.Context) ShelfView {
	f, pref := s.Preferences(ctx)
	return BuildShelf(s.Entries(ctx), f, pref, s.lang)
}

// Preferences returns the stored filters and sort.
func (s *ShelfService) Preferences(ctx context.Context) (domain.Filters, domain.SortPreference) {
	return s.overlays.Filters(ctx), s.overlays.Sort(ctx)
}

// Dashboard computes the counters over every live book.
func (s *ShelfService) Dashboard(ctx context.Context) Dashboard {
	return ComputeDashboard(s.Entries(ctx))
}

// Language is the collation language used for sorting.
func (s *ShelfService) Language() language.Tag {
	return s.lang
}

// ResolveRating returns overlay[id] ?? inline ?? 0.
func ResolveRating(b domain.Book, ratings map[string]float64) float64 {
	if r, ok := ratings[b.ID]; ok {
		return r
	}
	if b.Rating != nil {
		return *b.Rating
	}
	return 0
}

// ResolveStatus returns overlay[id] ?? inline ?? default.
func ResolveStatus(b domain.Book, statuses map[string]domain.ReadingStatus) domain.ReadingStatus {
	if st, ok := statuses[b.ID]; ok && st.Valid() {
		return st
	}
	if b.Status.Valid() {
		return b.Status
	}
	return domain.DefaultStatus
}

// BuildEntries resolves overlays for each book. Overlay ids without a live book are ignored.
func BuildEntries(books []domain.Book, owned map[string]bool, ratings map[string]float64, statuses map[string]domain.ReadingStatus) []Entry {
	out := make([]Entry, len(books))
	for i, b := range books {
		out[i] = Entry{
			Book:     b,
			Status:   ResolveStatus(b, statuses),
			Rating:   ResolveRating(b, ratings),
			Owned:    owned[b.ID],
			Position: i,
		}
		out[i].Progress = progressOf(out[i])
	}
	return out
}

// WithStatus returns e with a new resolved status.
func (e Entry) WithStatus(status domain.ReadingStatus) Entry {
	e.Status = status
	e.Progress = progressOf(e)
	return e
}

func progressOf(e Entry) float64 {
	if e.Status == domain.StatusFinished {
		return 1
	}
	return e.Book.Progress()
}

// FilterEntries keeps entries matching the query (title or author, case- and
// accent-insensitive), the resolved status, and the genre.
func FilterEntries(entries []Entry, f domain.Filters) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.Genre != "" && e.Book.Genre != f.Genre {
			continue
		}
		if !normalize.Matches(f.Query, e.Book.Title, e.Book.Author) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// SortEntries orders entries in place. Missing values go last in either direction and
// ties keep catalog order.
func SortEntries(entries []Entry, pref domain.SortPreference, lang language.Tag) {
	pref = pref.Normalized()
	col := collate.New(lang, collate.IgnoreCase, collate.Loose)

	compare := func(a, b Entry) (int, bool) {
		switch pref.Field {
		case domain.SortTitle:
			return col.CompareString(a.Book.Title, b.Book.Title), false
		case domain.SortAuthor:
			return col.CompareString(a.Book.Author, b.Book.Author), false
		case domain.SortRating:
			return cmp.Compare(a.Rating, b.Rating), false
		case domain.SortProgress:
			return cmp.Compare(a.Progress, b.Progress), false
		case domain.SortYear:
			return compareOptional(a.Book.Year, b.Book.Year)
		case domain.SortPages:
			return compareOptional(a.Book.Pages, b.Book.Pages)
		default:
			return cmp.Compare(a.Position, b.Position), false
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		c, final := compare(a, b)
		if !final && pref.Direction == domain.SortDesc {
			c = -c
		}
		if c == 0 {
			return a.Position < b.Position
		}
		return c < 0
	})
}

// compareOptional compares two optional values with nil last. The bool reports that
// the order is already final and must not be reversed.
func compareOptional(a, b *int) (int, bool) {
	switch {
	case a == nil && b == nil:
		return 0, true
	case a == nil:
		return 1, true
	case b == nil:
		return -1, true
	default:
		return cmp.Compare(*a, *b), false
	}
}

// Genres returns the distinct non-empty genres, sorted.
func Genres(entries []Entry, lang language.Tag) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, e := range entries {
		g := e.Book.Genre
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	collate.New(lang, collate.IgnoreCase).SortStrings(out)
	return out
}

// ComputeDashboard counts entries by resolved status.
func ComputeDashboard(entries []Entry) Dashboard {
	d := Dashboard{
		Total:    len(entries),
		ByStatus: make(map[domain.ReadingStatus]int, len(domain.Statuses())),
	}
	for _, st := range domain.Statuses() {
		d.ByStatus[st] = 0
	}

	ratingSum := 0.0
	for _, e := range entries {
		d.ByStatus[e.Status]++
		if e.Status == domain.StatusFinished && e.Book.Pages != nil {
			d.PagesRead += *e.Book.Pages
		}
		if e.Rating > 0 {
			d.Rated++
			ratingSum += e.Rating
		}
	}
	d.WantToRead = d.ByStatus[domain.StatusWantToRead]
	d.Reading = d.ByStatus[domain.StatusReading]
	d.Finished = d.ByStatus[domain.StatusFinished]
	if d.Rated > 0 {
		d.AverageRating = ratingSum / float64(d.Rated)
	}
	return d
}

// BuildShelf filters and sorts entries and gathers the genre options and counters.
func BuildShelf(entries []Entry, f domain.Filters, pref domain.SortPreference, lang language.Tag) ShelfView {
	visible := FilterEntries(entries, f)
	SortEntries(visible, pref, lang)
	return ShelfView{
		Entries:   visible,
		Count:     len(visible),
		Total:     len(entries),
		Genres:    Genres(entries, lang),
		Filters:   f,
		Sort:      pref.Normalized(),
		Dashboard: ComputeDashboard(entries),
	}
}

// EntryIndex returns the position of id in entries, or -1.
func EntryIndex(entries []Entry, id string) int {
	return slices.IndexFunc(entries, func(e Entry) bool { return e.Book.ID == id })
}
