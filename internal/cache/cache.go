package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"inviteguard/entity"
)

const (
	snapshotKeyPrefix = "invite:snapshot:"
	backupKeyPrefix   = "security:slowmode_backup:"

	// DefaultSize bounds the number of resident entries; eviction of a cold
	// entry only degrades attribution confidence, it never breaks
	// correctness.
	DefaultSize = 4096

	backupTTL = 24 * time.Hour
)

type entry struct {
	value   any
	expires time.Time // zero means no expiry
}

// Cache is the in-process state store for invite snapshots, lockdown
// slowmode backups and sliding-window timestamp sets. Entries carry an
// optional per-key TTL on top of the bounded LRU.
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, entry]
	now func() time.Time
}

func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	backing, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Cache{
		lru: backing,
		now: time.Now,
	}, nil
}

// set must be called with c.mu held.
func (c *Cache) set(key string, value any, ttl time.Duration) {
	e := entry{value: value}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.lru.Add(key, e)
}

// get must be called with c.mu held. Expired entries are dropped on read.
func (c *Cache) get(key string) (any, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.lru.Remove(key)
		return nil, false
	}
	return e.value, true
}

// SetSnapshot overwrites the invite snapshot for a guild. Snapshots carry no
// TTL; they are replaced on every invite event and join. The snapshot is
// copied before storing so the resident map never aliases a caller's map.
func (c *Cache) SetSnapshot(guildID int64, snap entity.InviteSnapshot) {
	stored := make(entity.InviteSnapshot, len(snap))
	for code, e := range snap {
		stored[code] = e
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(fmt.Sprintf("%s%d", snapshotKeyPrefix, guildID), stored, 0)
}

// Snapshot returns a copy of the last stored invite snapshot for a guild, or
// an empty map when none is resident. Attribution degrades rather than errors
// on a missing snapshot. The copy keeps callers that mutate or iterate the
// result isolated from each other; the resident map is never handed out.
func (c *Cache) Snapshot(guildID int64) entity.InviteSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.get(fmt.Sprintf("%s%d", snapshotKeyPrefix, guildID))
	if !ok {
		return entity.InviteSnapshot{}
	}
	snap, ok := v.(entity.InviteSnapshot)
	if !ok {
		return entity.InviteSnapshot{}
	}
	out := make(entity.InviteSnapshot, len(snap))
	for code, e := range snap {
		out[code] = e
	}
	return out
}

// SetSlowmodeBackup stores the pre-lockdown per-channel slowmode values.
// The backup survives for 24 hours; a lockdown left enabled longer than that
// restores to zero.
func (c *Cache) SetSlowmodeBackup(guildID int64, backup map[int64]int) {
	stored := make(map[int64]int, len(backup))
	for channelID, seconds := range backup {
		stored[channelID] = seconds
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(fmt.Sprintf("%s%d", backupKeyPrefix, guildID), stored, backupTTL)
}

// SlowmodeBackup returns a copy of the stored backup, or an empty map when
// missing or expired. Channels absent from the backup restore to zero.
func (c *Cache) SlowmodeBackup(guildID int64) map[int64]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.get(fmt.Sprintf("%s%d", backupKeyPrefix, guildID))
	if !ok {
		return map[int64]int{}
	}
	backup, ok := v.(map[int64]int)
	if !ok {
		return map[int64]int{}
	}
	out := make(map[int64]int, len(backup))
	for channelID, seconds := range backup {
		out[channelID] = seconds
	}
	return out
}
