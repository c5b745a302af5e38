//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/ixra/ixra-api/internal/config"
	"github.com/ixra/ixra-api/internal/core"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	cfg := config.StoreConfig{
		Driver: "libsql",
		Path:   "file:" + t.TempDir() + "/ixra.db",
	}

	store, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{
		Driver: "libsql",
		Path:   ":memory:",
	}

	store, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, store)
	require.Equal(t, "libsql", store.Driver())
	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.Close())
}

func TestOpenLocalStore_ConfiguresSQLite(t *testing.T) {
	store := openTestStore(t)
	require.Equal(t, 1, store.DB.Stats().MaxOpenConnections)

	var journalMode string
	require.NoError(t, store.DB.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&journalMode))
	require.Contains(t, journalMode, "wal")
}

func TestRateLimitRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	entry, err := store.GetRateLimit(ctx, "chat:10.0.0.1")
	require.NoError(t, err)
	require.Nil(t, entry)

	require.NoError(t, store.UpdateRateLimit(ctx, "chat:10.0.0.1", &core.RateLimitEntry{Count: 1, ResetAt: now.Add(time.Hour)}))
	require.NoError(t, store.UpdateRateLimit(ctx, "chat:10.0.0.1", &core.RateLimitEntry{Count: 2, ResetAt: now.Add(time.Hour)}))
	require.NoError(t, store.UpdateRateLimit(ctx, "chat:10.0.0.2", &core.RateLimitEntry{Count: 5, ResetAt: now.Add(-time.Minute)}))

	entry, err = store.GetRateLimit(ctx, "chat:10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, 2, entry.Count)
	require.True(t, entry.ResetAt.Equal(now.Add(time.Hour)))

	count, err := store.CountRateLimits(ctx, RateLimitQuery{Prefix: "chat:"})
	require.NoError(t, err)
	require.Equal(t, 2, count)

	removed, err := store.SweepRateLimits(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	records, err := store.ListRateLimits(ctx, RateLimitQuery{All: true})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "chat:10.0.0.1", records[0].Key)

	reset, err := store.ResetRateLimits(ctx, RateLimitQuery{Key: "chat:10.0.0.1"})
	require.NoError(t, err)
	require.Equal(t, int64(1), reset)
}

func TestLeadsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveLead(ctx, &core.Lead{
		ID:              "lead-1",
		Name:            "Ada Lovelace",
		Email:           "ada@example.com",
		SimulationTypes: []string{"CFD", "FEA"},
		CreatedAt:       created,
	}))
	require.NoError(t, store.SaveLead(ctx, &core.Lead{
		ID:        "lead-2",
		Name:      "Grace Hopper",
		Email:     "grace@example.com",
		Company:   "Navy",
		CreatedAt: created.Add(time.Hour),
	}))

	leads, err := store.ListLeads(ctx, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	require.Equal(t, "lead-2", leads[0].ID)
	require.Equal(t, "Navy", leads[0].Company)
	require.Equal(t, []string{"CFD", "FEA"}, leads[1].SimulationTypes)

	recent, err := store.ListLeads(ctx, created.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	require.Error(t, store.SaveLead(ctx, &core.Lead{}))
}
