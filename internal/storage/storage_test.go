package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivoteditor/internal/storage"
)

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.New(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = storage.New(path)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())
	db.Close()
}

func TestSettingsStore(t *testing.T) {
	settings := storage.NewSettingsStore(openDB(t))

	_, ok, err := settings.Get("last_file")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, settings.Set("last_file", "/tmp/a.json"))
	require.NoError(t, settings.Set("last_file", "/tmp/b.json"))

	value, ok, err := settings.Get("last_file")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/tmp/b.json", value)

	require.NoError(t, settings.Delete("last_file"))
	_, ok, _ = settings.Get("last_file")
	assert.False(t, ok)
}

func TestHistoryStore_PushListGet(t *testing.T) {
	history := storage.NewHistoryStore(openDB(t), 40)

	first, err := history.Push("a.json", "load", 2, `{"pivots":{}}`)
	require.NoError(t, err)
	second, err := history.Push("a.json", "commit 1", 2, `{"pivots":{"1":{}}}`)
	require.NoError(t, err)
	_, err = history.Push("b.json", "load", 0, `{}`)
	require.NoError(t, err)

	snaps, err := history.List("a.json")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, second.ID, snaps[0].ID, "newest first")
	assert.Equal(t, first.ID, snaps[1].ID)
	assert.Empty(t, snaps[0].DocumentJSON, "list does not load documents")

	got, err := history.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, `{"pivots":{}}`, got.DocumentJSON)
	assert.Equal(t, "load", got.Label)
	assert.Equal(t, 2, got.PivotCount)

	latest, err := history.Latest("a.json")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	none, err := history.Latest("missing.json")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = history.Get("missing")
	assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)
}

func TestHistoryStore_Prune(t *testing.T) {
	history := storage.NewHistoryStore(openDB(t), 3)

	var ids []string
	for i := 0; i < 5; i++ {
		snap, err := history.Push("a.json", "commit", 1, "{}")
		require.NoError(t, err)
		ids = append(ids, snap.ID)
	}

	snaps, err := history.List("a.json")
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, []string{ids[4], ids[3], ids[2]}, []string{snaps[0].ID, snaps[1].ID, snaps[2].ID})
}

func TestHistoryStore_Clear(t *testing.T) {
	history := storage.NewHistoryStore(openDB(t), 0)
	_, err := history.Push("a.json", "load", 0, "{}")
	require.NoError(t, err)

	_, err = history.Push("b.json", "load", 0, "{}")
	require.NoError(t, err)

	n, err := history.Clear("a.json")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	snaps, err := history.List("a.json")
	require.NoError(t, err)
	assert.Empty(t, snaps)

	snaps, err = history.List("b.json")
	require.NoError(t, err)
	assert.Len(t, snaps, 1, "other documents keep their history")
}

func TestRecentFileStore(t *testing.T) {
	recent := storage.NewRecentFileStore(openDB(t), 2)

	require.NoError(t, recent.Touch("/data/a.osheet.json"))
	require.NoError(t, recent.Touch("/data/b.osheet.json"))
	require.NoError(t, recent.Touch("/data/a.osheet.json"))
	require.NoError(t, recent.Touch("/data/c.osheet.json"))

	files, err := recent.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/data/c.osheet.json", files[0].Path)
	assert.Equal(t, "c.osheet.json", files[0].Name)
	assert.Equal(t, "/data/a.osheet.json", files[1].Path)

	require.NoError(t, recent.Remove("/data/c.osheet.json"))
	files, err = recent.List()
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestRecentFileStore_Disabled(t *testing.T) {
	recent := storage.NewRecentFileStore(openDB(t), 0)
	require.NoError(t, recent.Touch("/data/a.json"))
	files, err := recent.List()
	require.NoError(t, err)
	assert.Empty(t, files)
}
