package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	mem, err := OpenSQLite(DefaultSQLiteConfig(":memory:"))
	require.NoError(t, err)
	file, err := OpenSQLite(DefaultSQLiteConfig(filepath.Join(t.TempDir(), "deckplay.db")))
	require.NoError(t, err)

	stores := map[string]Store{
		"memory":      NewMemoryStore(),
		"sqlite-mem":  mem,
		"sqlite-file": file,
	}
	if dsn := os.Getenv("DECKPLAY_TEST_POSTGRES_DSN"); dsn != "" {
		pg, err := OpenPostgres(context.Background(), dsn)
		require.NoError(t, err)
		require.NoError(t, pg.ReplacePrefix(context.Background(), "test/", nil))
		stores["postgres"] = pg
	}
	for _, s := range stores {
		s := s
		t.Cleanup(func() { _ = s.Close() })
	}
	return stores
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "test/missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Put(ctx, "test/a", "1"))
			require.NoError(t, store.Put(ctx, "test/a", "2"))
			require.NoError(t, store.Put(ctx, "test/b", "3"))
			require.NoError(t, store.Put(ctx, "other/c", "4"))

			got, err := store.Get(ctx, "test/a")
			require.NoError(t, err)
			assert.Equal(t, "2", got)

			listed, err := store.List(ctx, "test/")
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"test/a": "2", "test/b": "3"}, listed)

			require.NoError(t, store.Delete(ctx, "test/b"))
			_, err = store.Get(ctx, "test/b")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.ReplacePrefix(ctx, "test/", map[string]string{"test/x": "9"}))
			listed, err = store.List(ctx, "test/")
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"test/x": "9"}, listed)

			other, err := store.Get(ctx, "other/c")
			require.NoError(t, err)
			assert.Equal(t, "4", other)

			err = store.ReplacePrefix(ctx, "test/", map[string]string{"elsewhere": "1"})
			assert.Error(t, err)
			listed, err = store.List(ctx, "test/")
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"test/x": "9"}, listed, "failed replace leaves the prefix alone")

			require.NoError(t, store.Delete(ctx, "other/c"))
		})
	}
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deckplay.db")
	first, err := OpenSQLite(DefaultSQLiteConfig(path))
	require.NoError(t, err)
	require.NoError(t, first.Put(context.Background(), "k", "v"))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(DefaultSQLiteConfig(path))
	require.NoError(t, err)
	defer second.Close()
	got, err := second.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestOpenSQLiteRequiresConfig(t *testing.T) {
	_, err := OpenSQLite(nil)
	assert.Error(t, err)
}
