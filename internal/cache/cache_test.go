package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feralcreative/moto-rooter/server/internal/lib/ride"
)

func TestCache_SetGet(t *testing.T) {
	c := NewCache()

	entry, err := c.Set("k", map[string]int{"a": 1}, time.Minute, 0, "test")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, entry.StaleThreshold, "default stale threshold is twice the refresh interval")
	assert.JSONEq(t, `{"a":1}`, string(entry.Data))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Same(t, entry, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_Staleness(t *testing.T) {
	c := NewCache()
	_, err := c.Set("k", "v", time.Minute, time.Hour, "test")
	require.NoError(t, err)

	// Age the entry past its refresh interval but inside the stale threshold
	entry, _ := c.GetWithMetadata("k")
	entry.CreatedAt = time.Now().Add(-10 * time.Minute)
	entry.ExpiresAt = entry.CreatedAt.Add(time.Minute)

	assert.True(t, c.IsStale("k"))
	assert.False(t, c.IsVeryStale("k"))
	_, ok := c.Get("k")
	assert.False(t, ok, "stale entries are not fresh hits")

	stale, ok := c.GetWithMetadata("k")
	assert.True(t, ok)
	assert.Equal(t, "v", stale.Value)

	assert.Equal(t, 0, c.CleanupVeryStale())

	entry.CreatedAt = time.Now().Add(-2 * time.Hour)
	assert.True(t, c.IsVeryStale("k"))
	assert.Equal(t, 1, c.CleanupVeryStale())
	assert.Empty(t, c.Keys())

	assert.True(t, c.IsStale("missing"))
	assert.True(t, c.IsVeryStale("missing"))
}

func TestCache_Stats(t *testing.T) {
	c := NewCache()
	_, _ = c.Set("a", 1, time.Minute, 0, "test")
	_, _ = c.Set("b", 2, -time.Second, 0, "test")

	stats := c.Stats()
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1, stats.FreshEntries)
	assert.Equal(t, 1, stats.StaleEntries)

	c.Delete("a")
	assert.Equal(t, []string{"b"}, c.Keys())
	c.Clear()
	assert.Empty(t, c.Keys())
}

func TestCache_RouteSet(t *testing.T) {
	c := NewCache()
	set := &ride.RouteSet{Routes: []*ride.Route{{Base: "01-Coast-Run", Name: "Coast Run"}}}
	set.Summarize()

	entry, err := c.SetRouteSet("routes.json", set, time.Minute, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, set.ETag, entry.ETag)
	assert.Same(t, set, entry.RouteSet())

	var decoded ride.RouteSet
	require.NoError(t, json.Unmarshal(entry.Data, &decoded))
	assert.Equal(t, "Coast Run", decoded.Routes[0].Name)

	got, ok := c.Get(RouteSetKey("routes.json"))
	require.True(t, ok)
	assert.Same(t, set, got.RouteSet())

	other, _ := c.Set("other", "x", time.Minute, 0, "test")
	assert.Nil(t, other.RouteSet())
}

func TestCache_PeriodicCleanupWithoutLogger(t *testing.T) {
	c := NewCache()
	_, err := c.Set("old", "x", time.Millisecond, time.Millisecond, "test")
	require.NoError(t, err)
	_, err = c.Set("fresh", "y", time.Hour, time.Hour, "test")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartPeriodicCleanup(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, found := c.GetWithMetadata("old")
		return !found
	}, time.Second, 5*time.Millisecond, "cleanup logs through a bare context without crashing")
	assert.Equal(t, []string{"fresh"}, c.Keys())
}
