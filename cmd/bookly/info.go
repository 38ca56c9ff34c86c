package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/booklyapp/bookly/internal/di"
	"github.com/booklyapp/bookly/internal/di/providers"
	"github.com/booklyapp/bookly/internal/domain"
	"github.com/booklyapp/bookly/internal/normalize"
	"github.com/booklyapp/bookly/internal/store"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show reading totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCore(func(ctx context.Context, _ do.Injector, core *di.Core) error {
				d := core.Shelf.Dashboard(ctx)
				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), d)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "Books\t%d\n", d.Total)
				for _, s := range domain.Statuses() {
					fmt.Fprintf(tw, "%s\t%d\n", s.Label(), d.ByStatus[s])
				}
				fmt.Fprintf(tw, "Pages read\t%d\n", d.PagesRead)
				fmt.Fprintf(tw, "Rated\t%d\n", d.Rated)
				if d.Rated > 0 {
					fmt.Fprintf(tw, "Average rating\t%.2f\n", d.AverageRating)
				}
				return tw.Flush()
			})
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Full-text search over titles, authors, genres and synopses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")

			return a.withCore(func(ctx context.Context, injector do.Injector, _ *di.Core) error {
				idx, err := do.Invoke[*providers.SearchIndexHandle](injector)
				if err != nil {
					return err
				}
				res, err := idx.Search(ctx, q, limit)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), res)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tSCORE")
				for i, b := range res.Books {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\n", b.ID, b.Title, b.Author, res.Hits[i].Score)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d matches\n", res.Total)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results (1-100)")

	return cmd
}

// keyReport describes one stored key.
type keyReport struct {
	Key     string `json:"key"`
	Bytes   int    `json:"bytes"`
	Books   *int   `json:"books,omitempty"`
	Dropped *int   `json:"dropped,omitempty"`
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show what is stored under the namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCore(func(ctx context.Context, injector do.Injector, _ *di.Core) error {
				backend, err := do.Invoke[*providers.BackendHandle](injector)
				if err != nil {
					return err
				}
				keys := do.MustInvoke[store.Keys](injector)

				names, err := backend.Keys(ctx, keys.Prefix())
				if err != nil {
					return err
				}
				sort.Strings(names)

				reports := make([]keyReport, 0, len(names))
				for _, k := range names {
					value, err := backend.Get(ctx, k)
					if errors.Is(err, store.ErrNotFound) {
						continue
					}
					if err != nil {
						return err
					}
					r := keyReport{Key: k, Bytes: len(value)}
					if k == keys.UserBooks() {
						books, dropped := normalize.BooksJSON(value)
						n := len(books)
						r.Books, r.Dropped = &n, &dropped
					}
					reports = append(reports, r)
				}

				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"backend": backend.Kind,
						"keys":    reports,
					})
				}

				fmt.Fprintf(cmd.OutOrStdout(), "backend: %s\n", backend.Kind)
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tBYTES\tNOTE")
				for _, r := range reports {
					note := ""
					if r.Books != nil {
						note = fmt.Sprintf("%d books, %d dropped", *r.Books, *r.Dropped)
					}
					fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Key, r.Bytes, note)
				}
				return tw.Flush()
			})
		},
	}
}
