package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/booklyapp/bookly/internal/di"
	"github.com/booklyapp/bookly/internal/domain"
	"github.com/booklyapp/bookly/internal/id"
	"github.com/booklyapp/bookly/internal/service"
	"github.com/booklyapp/bookly/internal/validation"
)

func newListCmd(a *app) *cobra.Command {
	var (
		filters domain.Filters
		status  string
		sortBy  string
		desc    bool
		stored  bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List books, optionally filtered and sorted",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCore(func(ctx context.Context, _ do.Injector, core *di.Core) error {
				var view service.ShelfView
				if stored {
					view = core.Shelf.Shelf(ctx)
				} else {
					if status != "" {
						st, ok := domain.ParseStatus(status)
						if !ok {
							return fmt.Errorf("unknown status %q", status)
						}
						filters.Status = st
					}
					pref := domain.SortPreference{Field: domain.SortField(sortBy), Direction: domain.SortAsc}
					if desc {
						pref.Direction = domain.SortDesc
					}
					view = service.BuildShelf(core.Shelf.Entries(ctx), filters, pref.Normalized(), core.Shelf.Language())
				}

				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), view)
				}
				printEntries(cmd.OutOrStdout(), view.Entries)
				fmt.Fprintf(cmd.OutOrStdout(), "%d of %d books\n", view.Count, view.Total)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&filters.Query, "query", "q", "", "match title or author, ignoring case and accents")
	f.StringVar(&status, "status", "", "only books with this reading status")
	f.StringVar(&filters.Genre, "genre", "", "only books of this genre")
	f.StringVar(&sortBy, "sort", string(domain.SortAdded), "added, title, author, year, rating, pages or progress")
	f.BoolVar(&desc, "desc", false, "sort descending")
	f.BoolVar(&stored, "stored", false, "use the stored shelf filters and sort instead of flags")

	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCore(func(ctx context.Context, _ do.Injector, core *di.Core) error {
				entries := core.Shelf.Entries(ctx)
				i := service.EntryIndex(entries, args[0])
				if i < 0 {
					return notFound(args[0])
				}
				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), entries[i])
				}
				printEntry(cmd.OutOrStdout(), entries[i])
				return nil
			})
		},
	}
}

// bookFlags holds the editable fields shared by add and edit.
type bookFlags struct {
	ID          string   `json:"id,omitempty" validate:"omitempty,max=64,excludesall=: "`
	Title       string   `json:"title" validate:"required,max=500"`
	Author      string   `json:"author" validate:"required,max=300"`
	Status      string   `json:"status,omitempty" validate:"omitempty,status"`
	Genre       string   `json:"genre,omitempty" validate:"max=100"`
	Year        *int     `json:"year,omitempty" validate:"omitempty,min=0,max=9999"`
	Pages       *int     `json:"pages,omitempty" validate:"omitempty,min=0"`
	PageCurrent *int     `json:"pageCurrent,omitempty" validate:"omitempty,min=0"`
	Rating      *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	ISBN        string   `json:"isbn,omitempty" validate:"omitempty,isbn10or13"`
	Cover       string   `json:"cover,omitempty" validate:"omitempty,url"`
	Synopsis    string   `json:"synopsis,omitempty"`
	Notes       string   `json:"notes,omitempty"`

	year, pages, page int
	rating            float64
}

func (b *bookFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&b.Title, "title", "", "title")
	f.StringVar(&b.Author, "author", "", "author")
	f.StringVar(&b.Status, "status", "", "reading status")
	f.StringVar(&b.Genre, "genre", "", "genre")
	f.IntVar(&b.year, "year", 0, "publication year")
	f.IntVar(&b.pages, "pages", 0, "page count")
	f.IntVar(&b.page, "page", 0, "current page")
	f.Float64Var(&b.rating, "rating", 0, "rating from 0 to 5")
	f.StringVar(&b.ISBN, "isbn", "", "ISBN-10 or ISBN-13")
	f.StringVar(&b.Cover, "cover", "", "cover image URL")
	f.StringVar(&b.Synopsis, "synopsis", "", "synopsis")
	f.StringVar(&b.Notes, "notes", "", "private notes")
}

// resolve copies numeric flags into their optional fields when they were given.
func (b *bookFlags) resolve(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("year") {
		b.Year = &b.year
	}
	if f.Changed("pages") {
		b.Pages = &b.pages
	}
	if f.Changed("page") {
		b.PageCurrent = &b.page
	}
	if f.Changed("rating") {
		b.Rating = &b.rating
	}
}

func newAddCmd(a *app) *cobra.Command {
	b := &bookFlags{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to your collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b.resolve(cmd)
			if err := validation.New().Validate(b); err != nil {
				return err
			}

			return a.withCore(func(ctx context.Context, _ do.Injector, core *di.Core) error {
				candidate := domain.Book{
					ID:          strings.TrimSpace(b.ID),
					Title:       b.Title,
					Author:      b.Author,
					Status:      domain.ReadingStatus(b.Status),
					Genre:       b.Genre,
					Year:        b.Year,
					Pages:       b.Pages,
					PageCurrent: b.PageCurrent,
					Rating:      b.Rating,
					ISBN:        b.ISBN,
					Cover:       b.Cover,
					Synopsis:    b.Synopsis,
					Notes:       b.Notes,
				}
				if candidate.ID == "" {
					generated, err := id.NewBookID()
					if err != nil {
						return err
					}
					candidate.ID = generated
				}
				if core.Collection.Ownership(ctx, candidate.ID) != domain.OwnerNone {
					return fmt.Errorf("book %s already exists", candidate.ID)
				}

				created, err := core.Collection.Create(ctx, candidate)
				if err != nil {
					return err
				}
				if created == nil {
					return fmt.Errorf("book was not added: title and author must not be blank")
				}

				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), created)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", created.ID)
				return nil
			})
		},
	}

	b.register(cmd)
	cmd.Flags().StringVar(&b.ID, "id", "", "book ID (generated when omitted)")

	return cmd
}

// patchFields maps edit flags to merge patch keys.
var patchFields = map[string]string{
	"title":    "title",
	"author":   "author",
	"status":   "status",
	"genre":    "genre",
	"year":     "year",
	"pages":    "pages",
	"page":     "pageCurrent",
	"rating":   "rating",
	"isbn":     "isbn",
	"cover":    "cover",
	"synopsis": "synopsis",
	"notes":    "notes",
}

func newEditCmd(a *app) *cobra.Command {
	var (
		b           = &bookFlags{}
		clearFields []string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a book you added",
		Long: "Change fields of a book you added. Only the given flags are changed;\n" +
			"--clear removes optional fields (for example --clear rating,notes).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b.resolve(cmd)
			raw, err := buildPatch(cmd, b, clearFields)
			if err != nil {
				return err
			}
			patch, err := domain.DecodePatch(raw)
			if err != nil {
				return err
			}
			if patch, err = validation.New().ValidatePatch(patch); err != nil {
				return err
			}

			return a.withCore(func(ctx context.Context, _ do.Injector, core *di.Core) error {
				switch core.Collection.Ownership(ctx, args[0]) {
				case domain.OwnerNone:
					return notFound(args[0])
				case domain.OwnerSeed:
					return fmt.Errorf("book %s belongs to the catalog; use rate or status instead", args[0])
				}

				updated, err := core.Collection.Update(ctx, args[0], patch)
				if err != nil {
					return err
				}
				if updated == nil {
					return notFound(args[0])
				}
				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), updated)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", updated.ID)
				return nil
			})
		},
	}

	b.register(cmd)
	cmd.Flags().StringSliceVar(&clearFields, "clear", nil, "optional fields to remove")

	return cmd
}

// buildPatch turns the changed flags into a JSON merge patch.
func buildPatch(cmd *cobra.Command, b *bookFlags, clearFields []string) ([]byte, error) {
	values := map[string]any{
		"title":    b.Title,
		"author":   b.Author,
		"status":   b.Status,
		"genre":    b.Genre,
		"year":     b.Year,
		"pages":    b.Pages,
		"page":     b.PageCurrent,
		"rating":   b.Rating,
		"isbn":     b.ISBN,
		"cover":    b.Cover,
		"synopsis": b.Synopsis,
		"notes":    b.Notes,
	}

	patch := make(map[string]any)
	for flag, key := range patchFields {
		if cmd.Flags().Changed(flag) {
			patch[key] = values[flag]
		}
	}
	for _, name := range clearFields {
		key, ok := patchFields[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		patch[key] = nil
	}
	if len(patch) == 0 {
		return nil, fmt.Errorf("nothing to change")
	}
	return json.Marshal(patch)
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a book you added",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCore(func(ctx context.Context, _ do.Injector, core *di.Core) error {
				if core.Collection.Ownership(ctx, args[0]) == domain.OwnerSeed {
					return fmt.Errorf("book %s belongs to the catalog and cannot be removed", args[0])
				}
				deleted, err := core.Collection.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				if !deleted {
					return notFound(args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newRateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <id> <rating|clear>",
		Short: "Rate any book from 0 to 5 in half points",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, raw := args[0], strings.ToLower(args[1])

			return a.withCore(func(ctx context.Context, _ do.Injector, core *di.Core) error {
				if _, ok := core.Collection.Get(ctx, bookID); !ok {
					return notFound(bookID)
				}

				if raw == "clear" || raw == "none" {
					if _, err := core.Overlays.ClearRating(ctx, bookID); err != nil {
						return err
					}
				} else {
					rating, err := strconv.ParseFloat(raw, 64)
					if err != nil {
						return fmt.Errorf("invalid rating %q", args[1])
					}
					if _, err := core.Overlays.SetRating(ctx, bookID, rating); err != nil {
						return err
					}
				}

				rating, _ := core.Overlays.Rating(ctx, bookID)
				fmt.Fprintf(cmd.OutOrStdout(), "%s rated %s\n", bookID, formatRating(rating))
				return nil
			})
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set the reading status of any book",
		Long:  "Set the reading status of any book: QUERO_LER, LENDO, LIDO, PAUSADO or ABANDONADO.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ok := domain.ParseStatus(args[1])
			if !ok {
				return fmt.Errorf("unknown status %q", args[1])
			}

			return a.withCore(func(ctx context.Context, _ do.Injector, core *di.Core) error {
				changed, err := core.Overlays.SetStatus(ctx, args[0], status)
				if err != nil {
					return err
				}
				if !changed {
					return notFound(args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], status.Label())
				return nil
			})
		},
	}
}

func printEntries(w io.Writer, entries []service.Entry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tSTATUS\tRATING\tPROGRESS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.0f%%\n",
			e.Book.ID, e.Book.Title, e.Book.Author, e.Status.Label(), formatRating(e.Rating), e.Progress*100)
	}
	_ = tw.Flush()
}

func printEntry(w io.Writer, e service.Entry) {
	b := e.Book
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(tw, "%s\t%s\n", k, v)
		}
	}
	row("ID", b.ID)
	row("Title", b.Title)
	row("Author", b.Author)
	row("Status", e.Status.Label())
	row("Rating", formatRating(e.Rating))
	row("Genre", b.Genre)
	if b.Year != nil {
		row("Year", strconv.Itoa(*b.Year))
	}
	if b.Pages != nil {
		page := 0
		if b.PageCurrent != nil {
			page = *b.PageCurrent
		}
		row("Pages", fmt.Sprintf("%d/%d (%.0f%%)", page, *b.Pages, e.Progress*100))
	}
	row("ISBN", b.ISBN)
	row("Cover", b.Cover)
	row("Synopsis", b.Synopsis)
	row("Notes", b.Notes)
	if e.Owned {
		row("Owner", "you")
	} else {
		row("Owner", "catalog")
	}
	_ = tw.Flush()
}

func formatRating(r float64) string {
	if r == 0 {
		return "-"
	}
	return strconv.FormatFloat(r, 'f', 1, 64)
}
