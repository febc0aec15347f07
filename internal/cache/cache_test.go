package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inviteguard/entity"
)

// newTestCache returns a cache whose clock is controlled by the returned
// advance function.
func newTestCache(t *testing.T) (*Cache, func(time.Duration)) {
	t.Helper()
	c, err := New(16)
	require.NoError(t, err)

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }
	return c, func(d time.Duration) { current = current.Add(d) }
}

func TestSnapshotMissingIsEmpty(t *testing.T) {
	c, _ := newTestCache(t)

	snap := c.Snapshot(1)
	assert.NotNil(t, snap)
	assert.Empty(t, snap)
}

func TestSnapshotRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)

	c.SetSnapshot(1, entity.InviteSnapshot{"abc": {Uses: 3, InviterID: 42}})
	snap := c.Snapshot(1)

	assert.Equal(t, 3, snap["abc"].Uses)
	assert.Equal(t, int64(42), snap["abc"].InviterID)

	// guilds do not share snapshots
	assert.Empty(t, c.Snapshot(2))
}

func TestSnapshotHasNoExpiry(t *testing.T) {
	c, advance := newTestCache(t)

	c.SetSnapshot(1, entity.InviteSnapshot{"abc": {Uses: 1}})
	advance(100 * 24 * time.Hour)

	assert.Contains(t, c.Snapshot(1), "abc")
}

func TestSlowmodeBackupExpires(t *testing.T) {
	c, advance := newTestCache(t)

	c.SetSlowmodeBackup(1, map[int64]int{10: 5, 11: 0})
	assert.Equal(t, map[int64]int{10: 5, 11: 0}, c.SlowmodeBackup(1))

	advance(23 * time.Hour)
	assert.Len(t, c.SlowmodeBackup(1), 2)

	advance(2 * time.Hour)
	assert.Empty(t, c.SlowmodeBackup(1))
}

func TestSnapshotDoesNotAliasResidentMap(t *testing.T) {
	c, _ := newTestCache(t)

	original := entity.InviteSnapshot{"abc": {Uses: 3}}
	c.SetSnapshot(1, original)

	// mutating the caller's map or a read result must not leak into the cache
	original["xyz"] = entity.SnapshotEntry{Uses: 1}
	read := c.Snapshot(1)
	read["def"] = entity.SnapshotEntry{Uses: 9}
	delete(read, "abc")

	snap := c.Snapshot(1)
	assert.Equal(t, entity.InviteSnapshot{"abc": {Uses: 3}}, snap)
}

func TestSlowmodeBackupDoesNotAliasResidentMap(t *testing.T) {
	c, _ := newTestCache(t)

	c.SetSlowmodeBackup(1, map[int64]int{10: 5})
	read := c.SlowmodeBackup(1)
	read[11] = 30

	assert.Equal(t, map[int64]int{10: 5}, c.SlowmodeBackup(1))
}

// One writer mutates snapshots it read back while another iterates them,
// mirroring invite-create events racing join attribution under the
// dispatcher's fan-out. Run with -race.
func TestSnapshotConcurrentMutateAndIterate(t *testing.T) {
	c, _ := newTestCache(t)
	c.SetSnapshot(1, entity.InviteSnapshot{"abc": {Uses: 1}, "def": {Uses: 2}})

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			snap := c.Snapshot(1)
			snap[fmt.Sprintf("code-%d", i%8)] = entity.SnapshotEntry{Uses: i}
			c.SetSnapshot(1, snap)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			total := 0
			for _, e := range c.Snapshot(1) {
				total += e.Uses
			}
			_ = total
		}
		close(done)
	}()

	wg.Wait()
}

func TestLRUEviction(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	c.SetSnapshot(1, entity.InviteSnapshot{"a": {}})
	c.SetSnapshot(2, entity.InviteSnapshot{"b": {}})
	c.SetSnapshot(3, entity.InviteSnapshot{"c": {}})

	// oldest guild fell out; readers get the empty-map degradation
	assert.Empty(t, c.Snapshot(1))
	assert.Contains(t, c.Snapshot(3), "c")
}
