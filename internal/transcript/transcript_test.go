package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore()
	require.NoError(t, err)
	return store
}

func TestAppendShell(t *testing.T) {
	store := newTestStore(t)

	entry, err := store.AppendShell("ls", "file1\nfile2\n", 0)
	require.NoError(t, err)

	assert.Equal(t, KindShell, entry.Kind)
	assert.Equal(t, "ls", entry.Command)
	assert.Equal(t, "file1\nfile2\n", entry.Output)
	require.True(t, entry.ExitCode.Valid)
	assert.Equal(t, int32(0), entry.ExitCode.Int32)
}

func TestAppendAI(t *testing.T) {
	store := newTestStore(t)

	entry, err := store.AppendAI("how do I list hidden files", "ls -a")
	require.NoError(t, err)

	assert.Equal(t, KindAI, entry.Kind)
	assert.Equal(t, "how do I list hidden files", entry.Command)
	assert.Equal(t, "ls -a", entry.Output)
	assert.False(t, entry.ExitCode.Valid)
}

func TestRecent(t *testing.T) {
	t.Run("returns chronological order", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.AppendShell("first", "", 0)
		require.NoError(t, err)
		_, err = store.AppendShell("second", "", 0)
		require.NoError(t, err)
		_, err = store.AppendShell("third", "", 1)
		require.NoError(t, err)

		entries, err := store.Recent(10)
		require.NoError(t, err)
		require.Len(t, entries, 3)

		assert.Equal(t, "first", entries[0].Command)
		assert.Equal(t, "second", entries[1].Command)
		assert.Equal(t, "third", entries[2].Command)
	})

	t.Run("respects limit with most recent kept", func(t *testing.T) {
		store := newTestStore(t)

		for _, cmd := range []string{"a", "b", "c", "d"} {
			_, err := store.AppendShell(cmd, "", 0)
			require.NoError(t, err)
		}

		entries, err := store.Recent(2)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		assert.Equal(t, "c", entries[0].Command)
		assert.Equal(t, "d", entries[1].Command)
	})

	t.Run("empty store returns no entries", func(t *testing.T) {
		store := newTestStore(t)

		entries, err := store.Recent(10)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestSearch(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AppendShell("git status", "", 0)
	require.NoError(t, err)
	_, err = store.AppendShell("ls -la", "", 0)
	require.NoError(t, err)
	_, err = store.AppendShell("git commit -m fix", "", 0)
	require.NoError(t, err)

	t.Run("matches fuzzily", func(t *testing.T) {
		entries, err := store.Search("git", 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		for _, e := range entries {
			assert.Contains(t, e.Command, "git")
		}
	})

	t.Run("no matches", func(t *testing.T) {
		entries, err := store.Search("zzzzzz", 10)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("respects limit", func(t *testing.T) {
		entries, err := store.Search("git", 1)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestCountAndClear(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AppendShell("ls", "", 0)
	require.NoError(t, err)
	_, err = store.AppendAI("q", "s")
	require.NoError(t, err)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, store.Clear())

	count, err = store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
