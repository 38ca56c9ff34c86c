package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklyapp/bookly/internal/domain"
	"github.com/booklyapp/bookly/internal/store"
	"github.com/booklyapp/bookly/internal/store/storetest"
)

func TestUserBooks_LoadFailsOpen(t *testing.T) {
	ctx := context.Background()
	keys := store.NewKeys("bookly")

	tests := []struct {
		name string
		raw  string
	}{
		{"corrupt json", `not json`},
		{"object instead of array", `{"id":"x"}`},
		{"string", `"hello"`},
		{"null", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := storetest.NewMemory()
			mem.Put(keys.UserBooks(), []byte(tt.raw))

			books := store.NewUserBooks(mem, keys, nil).Load(ctx)
			assert.NotNil(t, books)
			assert.Empty(t, books)
		})
	}

	t.Run("missing key", func(t *testing.T) {
		books := store.NewUserBooks(storetest.NewMemory(), keys, nil).Load(ctx)
		assert.Empty(t, books)
	})
}

// Corrupted entries are dropped silently, valid ones survive normalized.
func TestUserBooks_LoadDropsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	keys := store.NewKeys("bookly")
	mem := storetest.NewMemory()
	mem.Put(keys.UserBooks(), []byte(`[{"id":"x"},{"id":"y","title":"T","author":"A","pages":10,"pageCurrent":50}]`))

	books := store.NewUserBooks(mem, keys, nil).Load(ctx)

	require.Len(t, books, 1)
	assert.Equal(t, "y", books[0].ID)
	assert.Equal(t, 10, *books[0].PageCurrent)
	assert.Equal(t, domain.StatusWantToRead, books[0].Status)
}

func TestUserBooks_SaveIsOneWriteAndNormalizes(t *testing.T) {
	ctx := context.Background()
	keys := store.NewKeys("bookly")
	mem := storetest.NewMemory()
	ub := store.NewUserBooks(mem, keys, nil)

	err := ub.Save(ctx, []domain.Book{
		{ID: "u1", Title: " T ", Author: "A", Pages: domain.Ptr(100), PageCurrent: domain.Ptr(500)},
		{ID: "", Title: "no id", Author: "A"},
		{ID: "u1", Title: "dup", Author: "A"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Writes())

	books := ub.Load(ctx)
	require.Len(t, books, 1)
	assert.Equal(t, "T", books[0].Title)
	assert.Equal(t, 100, *books[0].PageCurrent)
}

func TestUserBooks_SaveEmptyWritesArray(t *testing.T) {
	ctx := context.Background()
	keys := store.NewKeys("bookly")
	mem := storetest.NewMemory()

	require.NoError(t, store.NewUserBooks(mem, keys, nil).Save(ctx, nil))

	raw, ok := mem.Raw(keys.UserBooks())
	require.True(t, ok)
	assert.Equal(t, `[]`, string(raw))
}

func TestUserBooks_RoundTripIsStable(t *testing.T) {
	ctx := context.Background()
	keys := store.NewKeys("bookly")
	mem := storetest.NewMemory()
	mem.Put(keys.UserBooks(), []byte(`[{"id":1,"title":"T","author":"A","rating":3.3,"junk":1},{"id":"2","title":"U","author":"B","status":"lido"}]`))
	ub := store.NewUserBooks(mem, keys, nil)

	require.NoError(t, ub.Save(ctx, ub.Load(ctx)))
	first, _ := mem.Raw(keys.UserBooks())

	require.NoError(t, ub.Save(ctx, ub.Load(ctx)))
	second, _ := mem.Raw(keys.UserBooks())

	assert.Equal(t, string(first), string(second))
}

func TestUserBooks_SaveFailure(t *testing.T) {
	ctx := context.Background()
	keys := store.NewKeys("bookly")
	mem := storetest.NewMemory()
	mem.FailWrites(true)

	err := store.NewUserBooks(mem, keys, nil).Save(ctx, []domain.Book{{ID: "u1", Title: "T", Author: "A"}})
	assert.ErrorIs(t, err, store.ErrWriteFailed)
	_, ok := mem.Raw(keys.UserBooks())
	assert.False(t, ok)
}

func TestUserBooks_OnBadger(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	ub := store.NewUserBooks(s, store.NewKeys("bookly"), nil)

	require.NoError(t, ub.Save(ctx, []domain.Book{{ID: "u1", Title: "T", Author: "A", Rating: domain.Ptr(4.5)}}))

	books := ub.Load(ctx)
	require.Len(t, books, 1)
	assert.InDelta(t, 4.5, *books[0].Rating, 1e-9)
}
