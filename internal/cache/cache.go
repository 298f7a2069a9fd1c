// Package cache provides a TTL key-value cache over pluggable raw string
// stores (in-memory, SQLite, Redis).
//
// Expiry is enforced twice: lazily on every read, and by a periodic Sweep
// that purges everything past its deadline. Get never returns an expired
// value even if the sweeper hasn't run.
package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// keyPrefix namespaces cache entries so they never collide with unrelated
// data in a shared backend.
const keyPrefix = "ct:"

// entry is the serialized envelope around every cached value.
type entry struct {
	Data      json.RawMessage `json:"data"`
	StoredAt  int64           `json:"stored_at"`  // ms epoch
	ExpiresAt int64           `json:"expires_at"` // ms epoch
}

// Cache is an expiring key-value cache. Safe for concurrent use as long as
// the underlying Store is.
type Cache struct {
	store Store

	// now is swappable for expiry tests.
	now func() time.Time
}

// New creates a Cache over the given raw store.
func New(store Store) *Cache {
	return &Cache{store: store, now: time.Now}
}

// Set serializes value and stores it with the given TTL. A failed write is
// reported but non-fatal: the caller proceeds without caching.
func (c *Cache) Set(key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache set %s: marshal: %w", key, err)
	}
	now := c.now()
	env, err := json.Marshal(entry{
		Data:      data,
		StoredAt:  now.UnixMilli(),
		ExpiresAt: now.Add(ttl).UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("cache set %s: marshal envelope: %w", key, err)
	}
	if err := c.store.RawSet(keyPrefix+key, string(env)); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Get unmarshals the cached value into out and reports whether a live entry
// was found. Expired entries are deleted on read and reported as absent.
func (c *Cache) Get(key string, out any) bool {
	raw, ok := c.store.RawGet(keyPrefix + key)
	if !ok {
		return false
	}
	var env entry
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		// Corrupt envelope: drop it so the next write starts clean.
		c.store.RawRemove(keyPrefix + key)
		return false
	}
	if c.now().UnixMilli() >= env.ExpiresAt {
		c.store.RawRemove(keyPrefix + key)
		return false
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		c.store.RawRemove(keyPrefix + key)
		return false
	}
	return true
}

// Remove deletes a key regardless of expiry.
func (c *Cache) Remove(key string) {
	c.store.RawRemove(keyPrefix + key)
}

// Sweep scans all namespaced entries and purges those past their deadline.
// Returns the number purged, for observability.
func (c *Cache) Sweep() int {
	nowMs := c.now().UnixMilli()
	purged := 0
	for _, k := range c.store.Keys(keyPrefix) {
		raw, ok := c.store.RawGet(k)
		if !ok {
			continue
		}
		var env entry
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			c.store.RawRemove(k)
			purged++
			continue
		}
		if nowMs >= env.ExpiresAt {
			c.store.RawRemove(k)
			purged++
		}
	}
	return purged
}

// Close releases the underlying store.
func (c *Cache) Close() error { return c.store.Close() }
