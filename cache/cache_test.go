package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath_StableAndVersioned(t *testing.T) {
	c := New(t.TempDir(), time.Hour)

	first := c.Path("page-1", "markdown", "v1")
	assert.Equal(t, first, c.Path("page-1", "markdown", "v1"))
	assert.NotEqual(t, first, c.Path("page-1", "markdown", "v2"))
	assert.NotEqual(t, first, c.Path("page-1", "html", "v1"))
	assert.Equal(t, "page-1", filepath.Base(filepath.Dir(first)))
}

func TestPath_StaysUnderRoot(t *testing.T) {
	root := t.TempDir()
	c := New(root, time.Hour)

	path := c.Path("../../etc", "html", "v1")
	rel, err := filepath.Rel(root, path)
	require.NoError(t, err)
	assert.NotContains(t, rel, "..")
}

func TestReadWrite(t *testing.T) {
	c := New(t.TempDir(), time.Hour)

	_, ok := c.Read("page-1", "html", "v1")
	assert.False(t, ok)

	require.NoError(t, c.Write("page-1", "html", "v1", []byte("<h1>Hi</h1>")))
	got, ok := c.Read("page-1", "html", "v1")
	require.True(t, ok)
	assert.Equal(t, "<h1>Hi</h1>", string(got))

	// a newer version replaces the older file
	require.NoError(t, c.Write("page-1", "html", "v2", []byte("<h1>Bye</h1>")))
	_, ok = c.Read("page-1", "html", "v1")
	assert.False(t, ok)
	got, ok = c.Read("page-1", "html", "v2")
	require.True(t, ok)
	assert.Equal(t, "<h1>Bye</h1>", string(got))
}

func TestRead_Expired(t *testing.T) {
	c := New(t.TempDir(), time.Minute)

	require.NoError(t, c.Write("page-1", "markdown", "v1", []byte("# Hi")))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(c.Path("page-1", "markdown", "v1"), old, old))

	_, ok := c.Read("page-1", "markdown", "v1")
	assert.False(t, ok)
}

func TestClearPage(t *testing.T) {
	c := New(t.TempDir(), time.Hour)

	require.NoError(t, c.Write("page-1", "html", "v1", []byte("a")))
	require.NoError(t, c.Write("page-1", "markdown", "v1", []byte("b")))
	require.NoError(t, c.Write("page-2", "html", "v1", []byte("c")))

	require.NoError(t, c.ClearPage("page-1"))

	_, ok := c.Read("page-1", "html", "v1")
	assert.False(t, ok)
	_, ok = c.Read("page-2", "html", "v1")
	assert.True(t, ok)

	// clearing a page that was never cached is fine
	assert.NoError(t, c.ClearPage("page-3"))
}

func TestClearOld(t *testing.T) {
	c := New(t.TempDir(), time.Minute)

	require.NoError(t, c.Write("page-1", "html", "v1", []byte("old")))
	require.NoError(t, c.Write("page-2", "html", "v1", []byte("fresh")))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(c.Path("page-1", "html", "v1"), old, old))

	removed, err := c.ClearOld()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok := c.Read("page-2", "html", "v1")
	assert.True(t, ok)
}

func TestClearOld_MissingRoot(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "nope"), time.Minute)

	removed, err := c.ClearOld()
	assert.NoError(t, err)
	assert.Equal(t, 0, removed)
}
