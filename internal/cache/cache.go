package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"

	"github.com/feralcreative/moto-rooter/server/internal/lib/ride"
)

// Cache provides thread-safe in-memory caching with TTL
type Cache struct {
	entries map[string]*CacheEntry
	mutex   sync.RWMutex
}

// CacheEntry represents a cached item with metadata. Data holds the JSON
// encoding of Value so handlers can write it without re-marshaling.
type CacheEntry struct {
	Key             string        `json:"key"`
	Data            []byte        `json:"data"`
	Value           interface{}   `json:"-"`
	ETag            string        `json:"etag"`
	CreatedAt       time.Time     `json:"created_at"`
	ExpiresAt       time.Time     `json:"expires_at"`
	RefreshInterval time.Duration `json:"refresh_interval"`
	StaleThreshold  time.Duration `json:"stale_threshold"`
	Source          string        `json:"source"`
}

// NewCache creates a new in-memory cache
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*CacheEntry),
	}
}

// Set stores data in cache with TTL based on refresh interval. A zero
// staleThreshold means twice the refresh interval.
func (c *Cache) Set(key string, data interface{}, refreshInterval, staleThreshold time.Duration, source string) (*CacheEntry, error) {
	return c.store(key, data, "", refreshInterval, staleThreshold, source)
}

func (c *Cache) store(key string, data interface{}, etag string, refreshInterval, staleThreshold time.Duration, source string) (*CacheEntry, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data for cache: %w", err)
	}
	if staleThreshold <= 0 {
		staleThreshold = refreshInterval * 2
	}

	now := time.Now()
	entry := &CacheEntry{
		Key:             key,
		Data:            jsonData,
		Value:           data,
		ETag:            etag,
		CreatedAt:       now,
		ExpiresAt:       now.Add(refreshInterval),
		RefreshInterval: refreshInterval,
		StaleThreshold:  staleThreshold,
		Source:          source,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = entry
	return entry, nil
}

// Get retrieves an entry if it is not stale
func (c *Cache) Get(key string) (*CacheEntry, bool) {
	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists || entry.isStale(time.Now()) {
		return nil, false
	}
	return entry, true
}

// GetWithMetadata retrieves an entry even when stale. The caller decides how
// to handle it.
func (c *Cache) GetWithMetadata(key string) (*CacheEntry, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	return entry, exists
}

// IsStale checks if cache entry is stale (past expiration)
func (c *Cache) IsStale(key string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return true
	}
	return entry.isStale(time.Now())
}

// IsVeryStale checks if cache entry is older than its stale threshold
func (c *Cache) IsVeryStale(key string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return true
	}
	return entry.IsVeryStale(time.Now())
}

func (e *CacheEntry) isStale(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// IsVeryStale reports whether the entry is too old to serve after a failed
// refresh
func (e *CacheEntry) IsVeryStale(now time.Time) bool {
	return now.After(e.CreatedAt.Add(e.StaleThreshold))
}

// Delete removes an entry from cache
func (c *Cache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, key)
}

// Clear removes all entries from cache
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*CacheEntry)
}

// Keys returns all cache keys
func (c *Cache) Keys() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	return keys
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := time.Now()
	stats := CacheStats{
		TotalEntries: len(c.entries),
	}

	for _, entry := range c.entries {
		if entry.isStale(now) {
			stats.StaleEntries++
		} else {
			stats.FreshEntries++
		}

		if stats.OldestEntry.IsZero() || entry.CreatedAt.Before(stats.OldestEntry) {
			stats.OldestEntry = entry.CreatedAt
		}
		if entry.CreatedAt.After(stats.NewestEntry) {
			stats.NewestEntry = entry.CreatedAt
		}
	}

	return stats
}

// CleanupVeryStale removes entries past their stale threshold. Merely stale
// entries stay so they can still be served while a refresh fails.
func (c *Cache) CleanupVeryStale() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	var removed int

	for key, entry := range c.entries {
		if entry.IsVeryStale(now) {
			delete(c.entries, key)
			removed++
		}
	}

	return removed
}

// StartPeriodicCleanup starts a goroutine that periodically cleans up very
// stale entries until ctx is done. A non-positive interval means one minute.
func (c *Cache) StartPeriodicCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ctx = logging.EnsureLogger(ctx)
	go func() {
		defer func() {
			// Recover from any panics in the cache cleanup goroutine
			if r := recover(); r != nil {
				err, _ := errors.ParseStack(debug.Stack())
				skipFrames := 3
				numFrames := 5
				logging.Errorw(ctx, "Cache cleanup: recovered from panic",
					"error", r, "error.stack_trace", err.MinimalStack(skipFrames, numFrames))
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := c.CleanupVeryStale(); removed > 0 {
					logging.Infow(ctx, "Cache cleanup: removed very stale entries", "removed", removed)
				}
			}
		}
	}()
}

// CacheStats provides cache usage statistics
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	OldestEntry  time.Time
	NewestEntry  time.Time
}

// RouteSetKey is the cache key for the route set loaded from a manifest
func RouteSetKey(manifest string) string {
	return fmt.Sprintf("routes:%s", manifest)
}

// SetRouteSet caches a loaded route set under its manifest name. The entry's
// ETag is the set's content hash.
func (c *Cache) SetRouteSet(manifest string, set *ride.RouteSet, refreshInterval, staleThreshold time.Duration) (*CacheEntry, error) {
	return c.store(RouteSetKey(manifest), set, set.ETag, refreshInterval, staleThreshold, "route_loader")
}

// RouteSet returns the cached set held by entry, or nil if it holds something
// else
func (e *CacheEntry) RouteSet() *ride.RouteSet {
	set, _ := e.Value.(*ride.RouteSet)
	return set
}
