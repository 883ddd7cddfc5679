package keystore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/storygraph/kgraph-backend/internal/kg/identity"
	"github.com/storygraph/kgraph-backend/internal/platform/logger"
)

func testStores(t *testing.T) map[string]KeyStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return map[string]KeyStore{
		"memory": NewMemory(),
		"redis":  NewRedis(rdb, logger.Nop()),
	}
}

func TestKeyStore_RoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			keys, err := store.Load(ctx, "fresh")
			require.NoError(t, err)
			require.Empty(t, keys)

			keys.AddString("n\x1fPerson\x1fname\x1fAlice\x1fsocial")
			keys.AddString("n\x1fPerson\x1fname\x1fBob\x1fsocial")
			require.NoError(t, store.Save(ctx, "social", keys))

			loaded, err := store.Load(ctx, "social")
			require.NoError(t, err)
			require.ElementsMatch(t, keys.Strings(), loaded.Strings())
		})
	}
}

func TestKeyStore_SaveReplaces(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Save(ctx, "ns", identity.NewKeySet("a", "b")))
			require.NoError(t, store.Save(ctx, "ns", identity.NewKeySet("c")))

			loaded, err := store.Load(ctx, "ns")
			require.NoError(t, err)
			require.Equal(t, []string{"c"}, loaded.Strings())
		})
	}
}

func TestKeyStore_NamespacesAreSeparate(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Save(ctx, "one", identity.NewKeySet("k1")))
			require.NoError(t, store.Save(ctx, "two", identity.NewKeySet("k2")))

			one, err := store.Load(ctx, "one")
			require.NoError(t, err)
			require.Equal(t, []string{"k1"}, one.Strings())
		})
	}
}

func TestKeyStore_Drop(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Save(ctx, "ns", identity.NewKeySet("k")))
			require.NoError(t, store.Drop(ctx, "ns"))

			loaded, err := store.Load(ctx, "ns")
			require.NoError(t, err)
			require.Empty(t, loaded)
		})
	}
}

func TestKeyStore_SaveEmptyClears(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Save(ctx, "ns", identity.NewKeySet("k")))
			require.NoError(t, store.Save(ctx, "ns", identity.NewKeySet()))

			loaded, err := store.Load(ctx, "ns")
			require.NoError(t, err)
			require.Empty(t, loaded)
		})
	}
}
