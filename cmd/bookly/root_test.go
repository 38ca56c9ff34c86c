package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklyapp/bookly/internal/domain"
	"github.com/booklyapp/bookly/internal/service"
)

// cli runs commands against one data directory.
type cli struct {
	t       *testing.T
	dataDir string
	backend string
}

func newCLI(t *testing.T, backend string) *cli {
	t.Helper()
	return &cli{t: t, dataDir: t.TempDir(), backend: backend}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{
		"--data", c.dataDir,
		"--backend", c.backend,
		"--env", "development",
		"--env-file", filepath.Join(c.dataDir, "missing.env"),
	}, args...))

	err := root.Execute()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

func runJSON[T any](c *cli, args ...string) T {
	c.t.Helper()
	var v T
	out := c.mustRun(append([]string{"--json"}, args...)...)
	require.NoError(c.t, json.Unmarshal([]byte(out), &v), out)
	return v
}

var backends = []string{"badger", "sqlite"}

func TestList_SeedCatalog(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			c := newCLI(t, backend)

			view := runJSON[service.ShelfView](c, "list")
			assert.Equal(t, 12, view.Total)
			assert.Equal(t, "S1", view.Entries[0].Book.ID)

			text := c.mustRun("list", "--genre", "Romance", "--sort", "year", "--desc")
			assert.Contains(t, text, "4 of 12 books")
		})
	}
}

func TestAddEditRemove_PersistsAcrossRuns(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			c := newCLI(t, backend)

			out := c.mustRun("add", "--id", "usr-1", "--title", "Torto Arado", "--author", "Itamar Vieira Junior",
				"--pages", "264", "--page", "300", "--notes", "emprestado")
			assert.Contains(t, out, "added usr-1")

			entry := runJSON[service.Entry](c, "show", "usr-1")
			assert.True(t, entry.Owned)
			assert.Equal(t, domain.StatusWantToRead, entry.Status)
			require.NotNil(t, entry.Book.PageCurrent)
			assert.Equal(t, 264, *entry.Book.PageCurrent, "current page is clamped to the page count")

			c.mustRun("edit", "usr-1", "--status", "lendo", "--clear", "notes")
			entry = runJSON[service.Entry](c, "show", "usr-1")
			assert.Equal(t, domain.StatusReading, entry.Status)
			assert.Empty(t, entry.Book.Notes)

			view := runJSON[service.ShelfView](c, "list")
			assert.Equal(t, 13, view.Total)

			c.mustRun("rm", "usr-1")
			_, err := c.run("show", "usr-1")
			assert.Error(t, err)
		})
	}
}

func TestAdd_Errors(t *testing.T) {
	c := newCLI(t, "badger")

	_, err := c.run("add", "--title", "Sem autor")
	assert.Error(t, err)

	_, err = c.run("add", "--id", "S1", "--title", "Dune", "--author", "Frank Herbert")
	assert.ErrorContains(t, err, "already exists")

	_, err = c.run("add", "--title", "X", "--author", "Y", "--isbn", "123")
	assert.Error(t, err)
}

func TestEdit_SeedAndUnknown(t *testing.T) {
	c := newCLI(t, "badger")

	_, err := c.run("edit", "S1", "--title", "Outro")
	assert.ErrorContains(t, err, "catalog")

	_, err = c.run("edit", "nope", "--title", "Outro")
	assert.ErrorContains(t, err, "not found")

	_, err = c.run("edit", "S1")
	assert.ErrorContains(t, err, "nothing to change")

	_, err = c.run("rm", "S1")
	assert.ErrorContains(t, err, "catalog")
}

func TestEdit_RejectsInvalidValues(t *testing.T) {
	c := newCLI(t, "badger")
	c.mustRun("add", "--id", "usr-1", "--title", "Torto Arado", "--author", "Itamar Vieira Junior", "--pages", "264")

	_, err := c.run("edit", "usr-1", "--rating", "9")
	assert.ErrorContains(t, err, "validation failed")

	_, err = c.run("edit", "usr-1", "--pages", "-4")
	assert.Error(t, err)

	_, err = c.run("edit", "usr-1", "--status", "LIDOO")
	assert.Error(t, err)

	entry := runJSON[service.Entry](c, "show", "usr-1")
	assert.Equal(t, domain.StatusWantToRead, entry.Status)
	require.NotNil(t, entry.Book.Pages)
	assert.Equal(t, 264, *entry.Book.Pages)
	assert.Nil(t, entry.Book.Rating)
}

func TestRateAndStatus_SeedBooks(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			c := newCLI(t, backend)

			out := c.mustRun("rate", "S3", "4.3")
			assert.Contains(t, out, "S3 rated 4.5")

			out = c.mustRun("status", "S1", "lido")
			assert.Contains(t, out, "S1 is now Lido")

			entry := runJSON[service.Entry](c, "show", "S3")
			assert.InDelta(t, 4.5, entry.Rating, 0.001)
			assert.False(t, entry.Owned)

			d := runJSON[service.Dashboard](c, "stats")
			assert.Equal(t, 12, d.Total)
			assert.Equal(t, 4, d.Finished)

			c.mustRun("rate", "S3", "clear")
			entry = runJSON[service.Entry](c, "show", "S3")
			assert.Zero(t, entry.Rating)
		})
	}
}

func TestRateAndStatus_Errors(t *testing.T) {
	c := newCLI(t, "badger")

	_, err := c.run("rate", "nope", "3")
	assert.ErrorContains(t, err, "not found")

	_, err = c.run("rate", "S1", "muito")
	assert.ErrorContains(t, err, "invalid rating")

	_, err = c.run("status", "S1", "FINISHED")
	assert.ErrorContains(t, err, "unknown status")

	_, err = c.run("status", "nope", "LIDO")
	assert.ErrorContains(t, err, "not found")
}

func TestSearch(t *testing.T) {
	c := newCLI(t, "badger")

	res := runJSON[struct {
		Books []domain.Book `json:"books"`
	}](c, "search", "tolkien")

	ids := make([]string, 0, len(res.Books))
	for _, b := range res.Books {
		ids = append(ids, b.ID)
	}
	assert.ElementsMatch(t, []string{"S3", "S8"}, ids)
}

func TestInspect(t *testing.T) {
	c := newCLI(t, "sqlite")
	c.mustRun("add", "--id", "usr-1", "--title", "Torto Arado", "--author", "Itamar Vieira Junior")
	c.mustRun("rate", "S2", "3")

	report := runJSON[struct {
		Backend string      `json:"backend"`
		Keys    []keyReport `json:"keys"`
	}](c, "inspect")

	assert.Equal(t, "sqlite", report.Backend)
	byKey := make(map[string]keyReport)
	for _, k := range report.Keys {
		byKey[k.Key] = k
	}
	require.Contains(t, byKey, "bookly:userBooks")
	require.NotNil(t, byKey["bookly:userBooks"].Books)
	assert.Equal(t, 1, *byKey["bookly:userBooks"].Books)
	assert.Equal(t, 0, *byKey["bookly:userBooks"].Dropped)
	assert.Contains(t, byKey, "bookly:ratings")
}
