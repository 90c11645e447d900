package kvstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTempFile(t *testing.T, capacity int) *File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	f, err := OpenFile(path, capacity)
	require.NoError(t, err)
	return f
}

func TestFileSetGetRemove(t *testing.T) {
	f := openTempFile(t, 0)

	require.NoError(t, f.Set("alpha", "1"))
	require.NoError(t, f.Set("beta", "2"))

	v, ok := f.Get("alpha")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	f.Remove("alpha")
	_, ok = f.Get("alpha")
	assert.False(t, ok)

	// Removing an absent key is a no-op.
	f.Remove("alpha")
	assert.ElementsMatch(t, []string{"beta"}, f.Keys())
}

func TestFileSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	f, err := OpenFile(path, 0)
	require.NoError(t, err)
	require.NoError(t, f.Set("records", `[{"id":"x"}]`))

	again, err := OpenFile(path, 0)
	require.NoError(t, err)
	v, ok := again.Get("records")
	require.True(t, ok)
	assert.Equal(t, `[{"id":"x"}]`, v)
}

func TestFileQuotaExceeded(t *testing.T) {
	f := openTempFile(t, 32)

	require.NoError(t, f.Set("k", "small"))
	err := f.Set("big", string(make([]byte, 64)))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// The failed write left the previous state intact.
	v, ok := f.Get("k")
	require.True(t, ok)
	assert.Equal(t, "small", v)
	_, ok = f.Get("big")
	assert.False(t, ok)
}

func TestFileOverwriteDoesNotDoubleCount(t *testing.T) {
	f := openTempFile(t, 40)
	require.NoError(t, f.Set("k", string(make([]byte, 30))))
	// Replacing the value is sized against the new content, not old+new.
	require.NoError(t, f.Set("k", string(make([]byte, 32))))
}

func TestFileReloadPicksUpExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	f, err := OpenFile(path, 0)
	require.NoError(t, err)
	require.NoError(t, f.Set("k", "mine"))

	// Another process rewrites the blob wholesale; the later write wins.
	other, err := OpenFile(path, 0)
	require.NoError(t, err)
	require.NoError(t, other.Set("k", "theirs"))

	require.NoError(t, f.Reload())
	v, _ := f.Get("k")
	assert.Equal(t, "theirs", v)
}

func TestOpenFileRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := OpenFile(path, 0)
	assert.Error(t, err)
}
