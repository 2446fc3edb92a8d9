package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("test")

	require.NoError(t, c.Set(ctx, "k1", "v1", 0))
	v, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, "v1", v)

	ok, err := c.Exists(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k1"))
	_, err = c.Get(ctx, "k1")
	require.True(t, IsNotFound(err))

	// Deleting an absent key is fine.
	require.NoError(t, c.Delete(ctx, "k1"))
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	require.NoError(t, c.Set(ctx, "short", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	require.True(t, IsNotFound(err))
	ok, err := c.Exists(ctx, "short")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStats(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	require.NoError(t, c.Set(ctx, "k1", "v1", 0))
	_, _ = c.Get(ctx, "k1")
	_, _ = c.Get(ctx, "missing")

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, "memory", stats.Driver)
	require.EqualValues(t, 1, stats.Keys)
	require.EqualValues(t, 1, stats.Hits)
	require.EqualValues(t, 1, stats.Misses)
}

func TestPrefixIsolation(t *testing.T) {
	ctx := context.Background()
	a := NewMemory("a")
	b := NewMemory("b")

	require.NoError(t, a.Set(ctx, "k", "from-a", 0))
	_, err := b.Get(ctx, "k")
	require.True(t, IsNotFound(err))
}

func TestNewSelectsDriver(t *testing.T) {
	c, err := New(Config{Driver: "memory"})
	require.NoError(t, err)
	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, "memory", stats.Driver)

	// Unknown drivers fall back to memory rather than failing startup.
	c, err = New(Config{Driver: "memcached"})
	require.NoError(t, err)
	require.NoError(t, c.Ping(context.Background()))
}
