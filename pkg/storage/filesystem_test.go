package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	path, err := store.Save("2025-03/substitutes.csv", []byte("date,lecture\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Dir(), "2025-03", "substitutes.csv"), path)

	f, err := store.Open("2025-03/substitutes.csv")
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "date,lecture\n", string(body))
}

func TestResolveRejectsEscapes(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../outside.csv", "a/../../outside.csv", "/etc/passwd"} {
		_, err := store.Save(name, []byte("x"))
		assert.ErrorIs(t, err, ErrOutsideBase, name)
	}
}

func TestCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	oldPath, err := store.Save("old.pdf", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("new.pdf", []byte("new"))
	require.NoError(t, err)

	now := time.Now()
	past := now.Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	deleted, err := store.CleanupOlderThan(24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.pdf"}, deleted)
	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
}
