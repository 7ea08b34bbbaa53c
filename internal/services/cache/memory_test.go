package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(1)

	_, ok := mc.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, mc.Set(ctx, "stats:e1", []byte(`{"totalPlays":3}`), time.Minute))
	value, ok := mc.Get(ctx, "stats:e1")
	require.True(t, ok)
	assert.Equal(t, `{"totalPlays":3}`, string(value))

	require.NoError(t, mc.Delete(ctx, "stats:e1"))
	_, ok = mc.Get(ctx, "stats:e1")
	assert.False(t, ok)

	stats := mc.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Zero(t, stats.Size)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	mc := NewMemoryCache(1)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "k", []byte("v"), 10*time.Second))
	_, ok := mc.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(10 * time.Second)
	_, ok = mc.Get(ctx, "k")
	assert.False(t, ok, "entries expire at their deadline")
	assert.Equal(t, int64(1), mc.Stats().Evictions)
}

func TestMemoryCache_DefaultTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	mc := NewMemoryCache(0)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "k", []byte("v"), 0))
	now = now.Add(DefaultTTL - time.Second)
	_, ok := mc.Get(ctx, "k")
	assert.True(t, ok)
}

func TestMemoryCache_EvictsToFit(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(1)

	half := make([]byte, 600*1024)
	require.NoError(t, mc.Set(ctx, "a", half, time.Minute))
	require.NoError(t, mc.Set(ctx, "b", half, time.Minute))

	stats := mc.Stats()
	assert.LessOrEqual(t, stats.Size, stats.MaxSize)
	_, ok := mc.Get(ctx, "b")
	assert.True(t, ok, "the newest entry is kept")
	_, ok = mc.Get(ctx, "a")
	assert.False(t, ok)
}

func TestMemoryCache_ReplaceKeepsSizeAccurate(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(1)

	require.NoError(t, mc.Set(ctx, "k", []byte("aaaa"), time.Minute))
	require.NoError(t, mc.Set(ctx, "k", []byte("bb"), time.Minute))
	assert.Equal(t, int64(len("k")+2), mc.Stats().Size)
}
