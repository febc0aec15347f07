package locks

import "sync"

// Manager hands out one mutex per guild id so that join-attribution work for
// a guild is strictly serialized while different guilds proceed in parallel.
// Mutexes are created lazily and never removed; growth is bounded by the
// number of distinct guilds seen.
type Manager struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewManager() *Manager {
	return &Manager{
		locks: make(map[int64]*sync.Mutex),
	}
}

// Get returns the mutex for a guild, creating it on first use.
func (m *Manager) Get(guildID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[guildID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[guildID] = l
	}
	return l
}
