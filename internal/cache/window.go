package cache

import "time"

// minWindowTTL keeps idle window keys alive long enough to be evicted by
// their own expiry instead of lingering forever during low traffic.
const minWindowTTL = 60 * time.Second

// RecordAndCount appends the current moment to the key's timestamp set,
// evicts entries older than the window, and returns the remaining count.
// The add-evict-count sequence is atomic under the cache lock, so the count
// never includes a timestamp outside the window (no false positives); a key
// silently expiring between calls only resets the window (accepted false
// negative).
//
// Shared by join-burst detection (key per guild) and link-spam detection
// (key per guild+author).
func (c *Cache) RecordAndCount(key string, window time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	cutoff := now.Add(-window)

	var stamps []time.Time
	if v, ok := c.get(key); ok {
		if prev, ok := v.([]time.Time); ok {
			stamps = prev
		}
	}

	kept := make([]time.Time, 0, len(stamps)+1)
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)

	ttl := window
	if ttl < minWindowTTL {
		ttl = minWindowTTL
	}
	c.set(key, kept, ttl)

	return len(kept)
}
