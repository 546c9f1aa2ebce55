package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSONMissingAndBlank(t *testing.T) {
	dir := t.TempDir()
	var v map[string]any

	ok, err := ReadJSON(filepath.Join(dir, "nope.json"), &v)
	require.NoError(t, err)
	assert.False(t, ok)

	blank := filepath.Join(dir, "blank.json")
	require.NoError(t, os.WriteFile(blank, []byte("  {} \n"), 0o644))
	ok, err = ReadJSON(blank, &v)
	require.NoError(t, err)
	assert.False(t, ok)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = ReadJSON(bad, &v)
	assert.Error(t, err)
}

func TestWriteJSONAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")

	require.NoError(t, WriteJSONAtomic(path, map[string]int{"a": 1}, 0o600))

	var got map[string]int
	ok, err := ReadJSON(path, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, got["a"])

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestBlocklist(t *testing.T) {
	b := NewBlocklist(t.TempDir())

	tokens, err := b.Load()
	require.NoError(t, err)
	assert.Empty(t, tokens)

	added, err := b.Add(" mintA ")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = b.Add("mintA")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = b.Add("mintB")
	require.NoError(t, err)

	set, err := b.Set()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"mintA": true, "mintB": true}, set)

	removed, err := b.Remove("mintA")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = b.Remove("mintA")
	require.NoError(t, err)
	assert.False(t, removed)

	tokens, err = b.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"mintB"}, tokens)

	_, err = b.Add("")
	assert.Error(t, err)
}
