package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordAndCountGrows(t *testing.T) {
	c, _ := newTestCache(t)

	for i := 1; i <= 5; i++ {
		assert.Equal(t, i, c.RecordAndCount("security:joins:1", 10*time.Second))
	}
}

func TestRecordAndCountEvictsOldEntries(t *testing.T) {
	c, advance := newTestCache(t)

	c.RecordAndCount("k", 10*time.Second)
	advance(4 * time.Second)
	c.RecordAndCount("k", 10*time.Second)
	advance(7 * time.Second)

	// first stamp is now 11s old and out of the window
	assert.Equal(t, 2, c.RecordAndCount("k", 10*time.Second))
}

func TestRecordAndCountKeysAreIndependent(t *testing.T) {
	c, _ := newTestCache(t)

	c.RecordAndCount("security:links:1:100", 30*time.Second)
	c.RecordAndCount("security:links:1:100", 30*time.Second)

	assert.Equal(t, 1, c.RecordAndCount("security:links:1:200", 30*time.Second))
	assert.Equal(t, 1, c.RecordAndCount("security:joins:1", 10*time.Second))
}

func TestRecordAndCountKeyTTLOutlivesShortWindow(t *testing.T) {
	c, advance := newTestCache(t)

	c.RecordAndCount("k", 2*time.Second)
	advance(30 * time.Second)

	// the key is retained for at least a minute, but the old stamp has
	// left the window
	assert.Equal(t, 1, c.RecordAndCount("k", 2*time.Second))
}

func TestRecordAndCountConcurrent(t *testing.T) {
	c, _ := newTestCache(t)

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				c.RecordAndCount("burst", time.Minute)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker+1, c.RecordAndCount("burst", time.Minute))
}

func TestRecordAndCountSurvivesForeignValue(t *testing.T) {
	c, _ := newTestCache(t)

	key := fmt.Sprintf("%s%d", snapshotKeyPrefix, 9)
	c.SetSnapshot(9, nil)

	// a non-timestamp value under the key resets the window instead of
	// panicking
	assert.Equal(t, 1, c.RecordAndCount(key, time.Second))
}
