package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePatch_AbsentSetClear(t *testing.T) {
	p, err := DecodePatch([]byte(`{"pageCurrent": 120, "rating": null, "unknown": true}`))
	require.NoError(t, err)

	v, ok := p.PageCurrent.Get()
	assert.True(t, ok)
	assert.Equal(t, 120, v)

	assert.True(t, p.Rating.IsClear())
	assert.True(t, p.Title.IsAbsent())
	assert.True(t, p.Pages.IsAbsent())
}

func TestDecodePatch_Empty(t *testing.T) {
	p, err := DecodePatch(nil)
	require.NoError(t, err)
	assert.Equal(t, BookPatch{}, p)

	_, err = DecodePatch([]byte(`{"pages": "many"}`))
	assert.Error(t, err)
}

func TestBookPatch_ApplyEmptyPatchIsIdentity(t *testing.T) {
	prev := Book{ID: "u1", Title: "T", Author: "A", Status: StatusReading, Pages: Ptr(300), Rating: Ptr(4.5), Notes: "n"}

	next := BookPatch{}.Apply(prev)
	assert.True(t, prev.Equal(next))
}

func TestBookPatch_Apply(t *testing.T) {
	prev := Book{ID: "u1", Title: "T", Author: "A", Status: StatusReading, Pages: Ptr(300), Rating: Ptr(4.5), Genre: "Drama"}

	next := BookPatch{
		Title:  Set("   "),
		Author: Clear[string](),
		Pages:  Set(350),
		Rating: Clear[float64](),
		Genre:  Clear[string](),
		Notes:  Set("re-read"),
	}.Apply(prev)

	assert.Equal(t, "T", next.Title, "blank title is ignored")
	assert.Equal(t, "A", next.Author, "required fields cannot be cleared")
	assert.Equal(t, 350, *next.Pages)
	assert.Nil(t, next.Rating)
	assert.Empty(t, next.Genre)
	assert.Equal(t, "re-read", next.Notes)

	// prev untouched
	assert.Equal(t, 300, *prev.Pages)
	assert.NotNil(t, prev.Rating)
}
