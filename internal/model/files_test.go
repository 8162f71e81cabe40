package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertFile_AppendsWhenAbsent(t *testing.T) {
	files := []File{
		{Name: "app/page.tsx", Content: "a"},
		{Name: "app/layout.tsx", Content: "b"},
	}

	out := UpsertFile(files, "components/hero.tsx", "c")

	require.Len(t, out, 3)
	assert.Equal(t, "app/page.tsx", out[0].Name)
	assert.Equal(t, "app/layout.tsx", out[1].Name)
	assert.Equal(t, "components/hero.tsx", out[2].Name)
	assert.Equal(t, "c", out[2].Content)
}

func TestUpsertFile_ReplacesInPlace(t *testing.T) {
	files := []File{
		{Name: "app/page.tsx", Content: "a"},
		{Name: "app/layout.tsx", Content: "b"},
	}

	out := UpsertFile(files, "app/page.tsx", "updated")

	require.Len(t, out, 2)
	assert.Equal(t, "app/page.tsx", out[0].Name)
	assert.Equal(t, "updated", out[0].Content)
	assert.Equal(t, "b", out[1].Content)

	// The input slice stays untouched.
	assert.Equal(t, "a", files[0].Content)
}

func TestRemoveFile(t *testing.T) {
	files := []File{
		{Name: "a.tsx"},
		{Name: "b.tsx"},
	}

	out, found := RemoveFile(files, "a.tsx")
	assert.True(t, found)
	require.Len(t, out, 1)
	assert.Equal(t, "b.tsx", out[0].Name)

	out, found = RemoveFile(files, "missing.tsx")
	assert.False(t, found)
	assert.Len(t, out, 2)
}

func TestFindFile(t *testing.T) {
	files := []File{{Name: "a.tsx", Content: "x"}}

	f, ok := FindFile(files, "a.tsx")
	assert.True(t, ok)
	assert.Equal(t, "x", f.Content)

	_, ok = FindFile(files, "b.tsx")
	assert.False(t, ok)
}
