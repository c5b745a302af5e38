package store

import (
	"context"
	"testing"
	"time"

	"github.com/ixra/ixra-api/internal/config"
	"github.com/ixra/ixra-api/internal/core"
	"github.com/stretchr/testify/require"
)

func TestBuildLibsqlDSN(t *testing.T) {
	t.Run("URLUsesRawValue", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://ixra.turso.io",
			AuthToken: "token123",
		}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://ixra.turso.io?authToken=token123", dsn)
	})

	t.Run("URLWithExistingQuery", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://ixra.turso.io?foo=bar",
			AuthToken: "token123",
		}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://ixra.turso.io?authToken=token123&foo=bar", dsn)
	})

	t.Run("PathWithFilePrefix", func(t *testing.T) {
		cfg := config.StoreConfig{Path: "file:./ixra.db"}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "file:./ixra.db", dsn)
	})

	t.Run("PathMissing", func(t *testing.T) {
		_, err := buildLibsqlDSN(config.StoreConfig{})
		require.Error(t, err)
	})

	t.Run("MemoryPath", func(t *testing.T) {
		dsn, err := buildLibsqlDSN(config.StoreConfig{Path: ":memory:"})
		require.NoError(t, err)
		require.Equal(t, ":memory:", dsn)
	})
}

func TestRebind(t *testing.T) {
	query := "SELECT a FROM t WHERE x = ? AND y = ?"

	pg := &Store{driver: DriverPostgres}
	require.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind(query))

	lite := &Store{driver: DriverLibsql}
	require.Equal(t, query, lite.rebind(query))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.ErrorContains(t, err, "unsupported store driver")

	_, err = Open(context.Background(), config.StoreConfig{Driver: DriverMemory})
	require.Error(t, err)

	_, err = Open(context.Background(), config.StoreConfig{Driver: DriverPostgres})
	require.ErrorContains(t, err, "store url is required")
}

func TestMemoryRateLimits(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mem := NewMemoryRateLimits()

	entry, err := mem.GetRateLimit(ctx, "chat:1.2.3.4")
	require.NoError(t, err)
	require.Nil(t, entry)

	require.NoError(t, mem.UpdateRateLimit(ctx, "chat:1.2.3.4", &core.RateLimitEntry{Count: 3, ResetAt: now.Add(time.Minute)}))
	require.NoError(t, mem.UpdateRateLimit(ctx, "chat:5.6.7.8", &core.RateLimitEntry{Count: 1, ResetAt: now.Add(-time.Second)}))
	require.NoError(t, mem.UpdateRateLimit(ctx, "other", &core.RateLimitEntry{Count: 1, ResetAt: now.Add(time.Hour)}))

	entry, err = mem.GetRateLimit(ctx, "chat:1.2.3.4")
	require.NoError(t, err)
	require.Equal(t, 3, entry.Count)

	// Returned entries are copies.
	entry.Count = 99
	again, err := mem.GetRateLimit(ctx, "chat:1.2.3.4")
	require.NoError(t, err)
	require.Equal(t, 3, again.Count)

	records, err := mem.ListRateLimits(ctx, RateLimitQuery{Prefix: "chat:"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "chat:1.2.3.4", records[0].Key)

	removed, err := mem.SweepRateLimits(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	removed, err = mem.ResetRateLimits(ctx, RateLimitQuery{All: true})
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)

	_, err = mem.ListRateLimits(ctx, RateLimitQuery{})
	require.Error(t, err)
}
