//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/shopple/internal/testutil"
)

func TestCacheTier_ExpiryAndCapacity(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	clock := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tier := NewCacheTier(pool, "short", 2, 30*time.Second)
	tier.now = func() time.Time { return clock }

	require.NoError(t, tier.Set(ctx, "milk", []byte("m")))
	clock = clock.Add(time.Second)
	require.NoError(t, tier.Set(ctx, "rice", []byte("r")))
	clock = clock.Add(time.Second)
	require.NoError(t, tier.Set(ctx, "eggs", []byte("e")))

	_, ok, err := tier.Get(ctx, "milk")
	require.NoError(t, err)
	assert.False(t, ok, "oldest entry should be pruned")

	got, ok, err := tier.Get(ctx, "eggs")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("e"), got)

	clock = clock.Add(31 * time.Second)
	_, ok, err = tier.Get(ctx, "eggs")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHitCounter_Incr(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	hits := NewHitCounter(pool, 100)
	for want := 1; want <= 3; want++ {
		n, err := hits.Incr(ctx, "milk")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
}
