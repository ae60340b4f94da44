// Package cache holds the in-process report cache and the janitor that
// expires its entries.
package cache

import (
	"sync"
	"time"

	"fintrack/internal/log"
)

// Key addresses one cached value. Owner groups entries so that a single
// write can drop everything computed for that owner.
type Key struct {
	Owner int64
	Name  string
}

// Cache is what the finance service needs from a report cache.
type Cache[V any] interface {
	Get(key Key) (V, bool)
	Set(key Key, value V)
	// InvalidateOwner drops every entry of owner and returns how many went.
	InvalidateOwner(owner int64) int
	// Clear drops everything and returns how many entries went.
	Clear() int
	Len() int
	// Generation changes whenever owner's entries are invalidated or cleared.
	Generation(owner int64) uint64
	// SetIfCurrent stores value only if key.Owner is still at gen.
	SetIfCurrent(key Key, value V, gen uint64) bool
}

// Expirer is a cache whose stale entries can be swept.
type Expirer interface {
	CleanExpired() int
}

// Manager sweeps registered caches on an interval.
type Manager struct {
	logger *log.Logger

	mu     sync.Mutex
	caches map[string]Expirer

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Manager{
		logger: logger.WithComponent(log.ComponentCache),
		caches: make(map[string]Expirer),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Register adds c under name. Registering a name twice replaces the cache.
func (m *Manager) Register(name string, c Expirer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// Sweep runs one cleanup pass and returns the number of entries removed per cache.
func (m *Manager) Sweep() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := make(map[string]int, len(m.caches))
	for name, c := range m.caches {
		if n := c.CleanExpired(); n > 0 {
			removed[name] = n
		}
	}
	return removed
}

// StartCleanup sweeps every interval until Stop. It is a no-op when
// interval is not positive or cleanup already runs.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	if interval <= 0 || m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for name, n := range m.Sweep() {
					m.logger.Debug("Expired cache entries removed", "cache", name, "count", n)
				}
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends the cleanup goroutine and waits for it. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		if started {
			<-m.done
		}
	})
}
