package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtoFilePersist(t *testing.T) {
	dir := t.TempDir()

	w, err := IntentNew(dir, "out.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("payload"))
	require.NoError(t, err)

	// nothing observable under the final name yet
	_, err = os.Stat(filepath.Join(dir, "out.txt"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, w.Persist())
	require.NoError(t, w.Zap()) // NOP after persisting

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	// the temp file is gone
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestProtoFileConflict(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "taken.txt"), []byte("first"), 0o600))

	w, err := IntentNew(dir, "taken.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("second"))
	require.NoError(t, err)

	err = w.Persist()
	require.Error(t, err)
	assert.True(t, os.IsExist(err))
	require.NoError(t, w.Zap())

	// the loser never touches the existing file
	data, err := os.ReadFile(filepath.Join(dir, "taken.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestProtoFileZap(t *testing.T) {
	dir := t.TempDir()

	w, err := IntentNew(dir, "gone.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("discard me"))
	require.NoError(t, err)
	require.NoError(t, w.Zap())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
