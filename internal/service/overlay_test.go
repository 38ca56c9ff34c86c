package service_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklyapp/bookly/internal/domain"
	domainerrors "github.com/booklyapp/bookly/internal/errors"
	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/service"
)

func TestOverlay_SetRatingOnSeedBook(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	ok, err := env.overlays.SetRating(ctx, "S3", 3.3)
	require.NoError(t, err)
	assert.True(t, ok)

	r, live := env.overlays.Rating(ctx, "S3")
	require.True(t, live)
	assert.InDelta(t, 3.5, r, 0.0001)
	assert.Equal(t, []events.Type{events.RatingsChanged}, env.eventTypes())

	// the seed record itself is untouched
	s3, _ := env.collection.Get(ctx, "S3")
	assert.Nil(t, s3.Rating)
}

func TestOverlay_SetRatingClampsAndRejects(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	_, err := env.overlays.SetRating(ctx, "S1", 9)
	require.NoError(t, err)
	r, _ := env.overlays.Rating(ctx, "S1")
	assert.InDelta(t, 5.0, r, 0.0001)

	_, err = env.overlays.SetRating(ctx, "S1", -2)
	require.NoError(t, err)
	r, _ = env.overlays.Rating(ctx, "S1")
	assert.Zero(t, r)

	_, err = env.overlays.SetRating(ctx, "S1", math.NaN())
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestOverlay_SetRatingUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	ok, err := env.overlays.SetRating(ctx, "ghost", 4)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, env.overlays.Ratings(ctx))
	assert.Empty(t, env.eventTypes())
}

func TestOverlay_ClearRatingFallsBackToInline(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	_, err := env.overlays.SetRating(ctx, "S1", 2)
	require.NoError(t, err)
	r, _ := env.overlays.Rating(ctx, "S1")
	assert.InDelta(t, 2.0, r, 0.0001)

	removed, err := env.overlays.ClearRating(ctx, "S1")
	require.NoError(t, err)
	assert.True(t, removed)

	r, _ = env.overlays.Rating(ctx, "S1")
	assert.InDelta(t, 4.5, r, 0.0001)

	removed, err = env.overlays.ClearRating(ctx, "S1")
	assert.NoError(t, err)
	assert.False(t, removed)
}

func TestOverlay_SeedStatusLivesInOverlay(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	ok, err := env.overlays.SetStatus(ctx, "S3", domain.StatusReading)
	require.NoError(t, err)
	assert.True(t, ok)

	st, _ := env.overlays.Status(ctx, "S3")
	assert.Equal(t, domain.StatusReading, st)
	assert.Equal(t, domain.StatusReading, env.overlays.Statuses(ctx)["S3"])

	s3, _ := env.collection.Get(ctx, "S3")
	assert.Equal(t, domain.StatusWantToRead, s3.Status)

	assert.Equal(t, []events.Type{events.StatusSet, events.StatusesChanged}, env.eventTypes())
	delta, ok := (*env.received)[0].StatusDelta()
	require.True(t, ok)
	assert.Equal(t, "S3", delta.ID)
	assert.Equal(t, domain.StatusReading, delta.Status)
}

func TestOverlay_UserStatusUpdatesRecordAndOverlay(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	_, err := env.collection.Create(ctx, domain.Book{ID: "u1", Title: "T", Author: "A"})
	require.NoError(t, err)

	ok, err := env.overlays.SetStatus(ctx, "u1", domain.StatusFinished)
	require.NoError(t, err)
	assert.True(t, ok)

	b, _ := env.collection.Get(ctx, "u1")
	assert.Equal(t, domain.StatusFinished, b.Status)
	assert.Equal(t, domain.StatusFinished, env.overlays.Statuses(ctx)["u1"])
	assert.Contains(t, env.eventTypes(), events.StatusSet)
	assert.Contains(t, env.eventTypes(), events.StatusesChanged)
}

func TestOverlay_InlineStatusEditMirrorsIntoOverlay(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	_, err := env.collection.Create(ctx, domain.Book{ID: "u1", Title: "T", Author: "A"})
	require.NoError(t, err)
	_, err = env.overlays.SetStatus(ctx, "u1", domain.StatusReading)
	require.NoError(t, err)

	// an edit through the collection must not leave the overlay behind
	_, err = env.collection.Update(ctx, "u1", domain.BookPatch{Status: domain.Set(domain.StatusPaused)})
	require.NoError(t, err)

	st, _ := env.overlays.Status(ctx, "u1")
	assert.Equal(t, domain.StatusPaused, st)
	assert.Equal(t, domain.StatusPaused, env.overlays.Statuses(ctx)["u1"])
}

func TestOverlay_InvalidStatusBecomesDefault(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	_, err := env.overlays.SetStatus(ctx, "S1", domain.ReadingStatus("nope"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWantToRead, env.overlays.Statuses(ctx)["S1"])

	_, err = env.overlays.SetStatus(ctx, "S3", domain.ReadingStatus("lido"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, env.overlays.Statuses(ctx)["S3"])
}

func TestOverlay_StaleEntriesAreIgnored(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	_, err := env.collection.Create(ctx, domain.Book{ID: "u1", Title: "T", Author: "A"})
	require.NoError(t, err)
	_, err = env.overlays.SetRating(ctx, "u1", 4)
	require.NoError(t, err)

	_, err = env.collection.Delete(ctx, "u1")
	require.NoError(t, err)

	assert.Contains(t, env.overlays.Ratings(ctx), "u1")
	_, live := env.overlays.Rating(ctx, "u1")
	assert.False(t, live)
	assert.Equal(t, -1, service.EntryIndex(env.shelf.Entries(ctx), "u1"))

	ok, err := env.overlays.SetStatus(ctx, "u1", domain.StatusReading)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestOverlay_ReusedIDStartsClean(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	_, err := env.collection.Create(ctx, domain.Book{ID: "mine", Title: "T", Author: "A"})
	require.NoError(t, err)
	_, err = env.overlays.SetRating(ctx, "mine", 5)
	require.NoError(t, err)
	_, err = env.overlays.SetStatus(ctx, "mine", domain.StatusFinished)
	require.NoError(t, err)
	_, err = env.collection.Delete(ctx, "mine")
	require.NoError(t, err)
	env.resetEvents()

	_, err = env.collection.Create(ctx, domain.Book{ID: "mine", Title: "T2", Author: "A2", Status: domain.StatusWantToRead})
	require.NoError(t, err)

	entries := env.shelf.Entries(ctx)
	i := service.EntryIndex(entries, "mine")
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, domain.StatusWantToRead, entries[i].Status)
	assert.Zero(t, entries[i].Rating)

	assert.NotContains(t, env.overlays.Ratings(ctx), "mine")
	assert.NotContains(t, env.overlays.Statuses(ctx), "mine")
	assert.Contains(t, env.eventTypes(), events.RatingsChanged)
	assert.Contains(t, env.eventTypes(), events.StatusesChanged)
}

func TestOverlay_CreateWithoutStaleEntriesWritesNothing(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	_, err := env.collection.Create(ctx, domain.Book{ID: "u1", Title: "T", Author: "A"})
	require.NoError(t, err)
	writes := env.mem.Writes()

	_, err = env.collection.Create(ctx, domain.Book{ID: "u2", Title: "T", Author: "A"})
	require.NoError(t, err)
	assert.Equal(t, writes+1, env.mem.Writes(), "only the collection is written")
}

func TestOverlay_UserStatusOverlayWriteFailure(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	_, err := env.collection.Create(ctx, domain.Book{ID: "u1", Title: "T", Author: "A", Status: domain.StatusReading})
	require.NoError(t, err)
	env.resetEvents()

	env.mem.FailKey(env.keys.Statuses(), true)

	ok, err := env.overlays.SetStatus(ctx, "u1", domain.StatusFinished)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domainerrors.ErrStorage)

	b, _ := env.collection.Get(ctx, "u1")
	assert.Equal(t, domain.StatusReading, b.Status)
	st, _ := env.overlays.Status(ctx, "u1")
	assert.Equal(t, domain.StatusReading, st)
	assert.Empty(t, env.eventTypes())

	env.mem.FailKey(env.keys.Statuses(), false)
	ok, err = env.overlays.SetStatus(ctx, "u1", domain.StatusFinished)
	require.NoError(t, err)
	assert.True(t, ok)
	st, _ = env.overlays.Status(ctx, "u1")
	assert.Equal(t, domain.StatusFinished, st)
}

func TestOverlay_UserStatusCollectionWriteFailureRestoresOverlay(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	_, err := env.collection.Create(ctx, domain.Book{ID: "u1", Title: "T", Author: "A"})
	require.NoError(t, err)
	_, err = env.overlays.SetStatus(ctx, "u1", domain.StatusReading)
	require.NoError(t, err)
	env.resetEvents()

	env.mem.FailKey(env.keys.UserBooks(), true)

	ok, err := env.overlays.SetStatus(ctx, "u1", domain.StatusAbandoned)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domainerrors.ErrStorage)

	assert.Equal(t, domain.StatusReading, env.overlays.Statuses(ctx)["u1"])
	b, _ := env.collection.Get(ctx, "u1")
	assert.Equal(t, domain.StatusReading, b.Status)
	assert.Empty(t, env.eventTypes())
}

func TestOverlay_WriteFailure(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	env.mem.FailWrites(true)

	ok, err := env.overlays.SetRating(ctx, "S1", 1)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domainerrors.ErrStorage)

	ok, err = env.overlays.SetStatus(ctx, "S1", domain.StatusFinished)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domainerrors.ErrStorage)

	_, err = env.overlays.SetFilters(ctx, domain.Filters{Query: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrStorage)

	assert.Empty(t, env.eventTypes())
	r, _ := env.overlays.Rating(ctx, "S1")
	assert.InDelta(t, 4.5, r, 0.0001)
}

func TestOverlay_Preferences(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	assert.Equal(t, domain.DefaultSort(), env.overlays.Sort(ctx))
	assert.True(t, env.overlays.Filters(ctx).IsZero())

	f, err := env.overlays.SetFilters(ctx, domain.Filters{Query: "dune", Status: "lendo", Genre: "Romance"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReading, f.Status)
	assert.Equal(t, f, env.overlays.Filters(ctx))

	pref, err := env.overlays.SetSort(ctx, domain.SortPreference{Field: "TITLE", Direction: "sideways"})
	require.NoError(t, err)
	assert.Equal(t, domain.SortPreference{Field: domain.SortTitle, Direction: domain.SortAsc}, pref)
	assert.Equal(t, pref, env.overlays.Sort(ctx))

	assert.Equal(t, []events.Type{events.PreferencesChanged, events.PreferencesChanged}, env.eventTypes())
}

func TestOverlay_CloseStopsMirroring(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	_, err := env.collection.Create(ctx, domain.Book{ID: "u1", Title: "T", Author: "A"})
	require.NoError(t, err)

	env.overlays.Close()
	_, err = env.collection.Update(ctx, "u1", domain.BookPatch{Status: domain.Set(domain.StatusFinished)})
	require.NoError(t, err)

	assert.NotContains(t, env.overlays.Statuses(ctx), "u1")
}
