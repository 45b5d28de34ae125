package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/learnhub/internal/client/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// repos runs the same contract against every Repository implementation.
func repos(t *testing.T) map[string]Repository {
	return map[string]Repository{
		"sqlite": NewSQLiteRepository(setupDB(t)),
		"memory": NewMemoryRepository(),
	}
}

func TestRepository_SetThenGet(t *testing.T) {
	for name, r := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, r.Set(ctx, "auth_token", []byte("tok1")))

			v, err := r.Get(ctx, "auth_token")
			require.NoError(t, err)
			require.Equal(t, []byte("tok1"), v)
		})
	}
}

func TestRepository_GetMissing_ReturnsNilNil(t *testing.T) {
	for name, r := range repos(t) {
		t.Run(name, func(t *testing.T) {
			v, err := r.Get(context.Background(), "absent")
			require.NoError(t, err)
			require.Nil(t, v)
		})
	}
}

func TestRepository_SetOverwrites(t *testing.T) {
	for name, r := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, r.Set(ctx, "k", []byte("old")))
			require.NoError(t, r.Set(ctx, "k", []byte("new")))

			v, err := r.Get(ctx, "k")
			require.NoError(t, err)
			require.Equal(t, []byte("new"), v)
		})
	}
}

func TestRepository_ListDeleteClear(t *testing.T) {
	for name, r := range repos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, r.Set(ctx, "a", []byte{0xAA}))
			require.NoError(t, r.Set(ctx, "b", []byte{0xBB, 0xCC}))

			m, err := r.List(ctx)
			require.NoError(t, err)
			assert.Len(t, m, 2)
			assert.Equal(t, []byte{0xBB, 0xCC}, m["b"])

			require.NoError(t, r.Delete(ctx, "a"))
			require.NoError(t, r.Delete(ctx, "a"), "delete is idempotent")
			v, err := r.Get(ctx, "a")
			require.NoError(t, err)
			require.Nil(t, v)

			require.NoError(t, r.Clear(ctx))
			m, err = r.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, m)
		})
	}
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	in := []byte("abc")
	require.NoError(t, r.Set(ctx, "k", in))
	in[0] = 'X'

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	v[1] = 'Y'

	again, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), again)
}

func TestSQLiteRepository_ErrorsWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	require.ErrorContains(t, err, "failed to get metadata[k]")

	require.ErrorContains(t, r.Set(ctx, "k", []byte("v")), "failed to set metadata[k]")
	require.ErrorContains(t, r.Delete(ctx, "k"), "failed to delete metadata[k]")
	require.ErrorContains(t, r.Clear(ctx), "failed to clear metadata")

	_, err = r.List(ctx)
	require.ErrorContains(t, err, "failed to list metadata")
}
