package localstorage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveFile(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStorage(filepath.Join(dir, "out"))
	require.NoError(t, store.Init(context.Background()))

	path, err := store.SaveFile(context.Background(), "clip.mp4", bytes.NewReader([]byte("videodata")))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("videodata"), data)
}

func TestSaveText(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStorage(dir)
	require.NoError(t, store.Init(context.Background()))

	path, err := store.SaveText(context.Background(), "texts.txt", "hello")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestSaveFileFlattensPaths(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStorage(dir)
	require.NoError(t, store.Init(context.Background()))

	path, err := store.SaveFile(context.Background(), "../../escape.mp4", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.mp4"), path)
}
