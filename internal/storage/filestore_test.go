package storage

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveOriginalAndRead(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	data := []byte("jpeg bytes")
	path, err := store.SaveOriginal("abc123", ".jpg", data)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, filepath.Join("abc123", "original.jpg")))

	got, err := store.Read(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSaveOriginalRejectsEmptyHash(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveOriginal("", ".jpg", []byte("x"))
	assert.Error(t, err)
}

func TestSaveRevisionSanitizesTitle(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.SaveRevision("abc123", "AI Enhanced", []byte("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, filepath.Join("abc123", "ai_enhanced.jpg")))

	path, err = store.SaveRevision("abc123", "///", []byte("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, filepath.Join("abc123", "revision.jpg")))
}

func TestNormalizeExtWhitelist(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.SaveOriginal("abc123", ".exe", []byte("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "original.jpg"))

	path, err = store.SaveOriginal("def456", ".PNG", []byte("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "original.png"))
}

func TestReadRefusesPathsOutsideRoot(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read("/etc/hostname")
	assert.Error(t, err)

	_, err = store.Read(filepath.Join(t.TempDir(), "other.jpg"))
	assert.Error(t, err)
}
