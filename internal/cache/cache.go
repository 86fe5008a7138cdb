// Package cache memoizes computed view-models behind a version gate. An
// entry is valid only while its stored version equals the live version of
// its scope. Concurrent callers may recompute the same cold key; entries
// are inserted only as complete units.
package cache

import (
	"sync"

	"go.uber.org/zap"
)

// Payload is one computed view-model plus its pre-encoded forms, computed
// once and reused by every reader until the version moves.
type Payload struct {
	Value any
	Forms map[string][]byte
}

type entry struct {
	key     uint64
	version uint64
	payload *Payload
}

// VersionFunc reads the live version for a scope: the platform's counter
// when platform is non-empty, the global one otherwise.
type VersionFunc func(platform string) uint64

// Cache is bounded with oldest-first (insertion order) trim. The workload is
// a few distinct variants per platform, so FIFO is enough; general LRU would
// buy nothing.
type Cache struct {
	mu       sync.Mutex
	entries  map[uint64]*entry
	order    []uint64
	capacity int
	version  VersionFunc
	log      *zap.Logger
}

func New(capacity int, version VersionFunc, log *zap.Logger) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		entries:  make(map[uint64]*entry, capacity),
		capacity: capacity,
		version:  version,
		log:      log,
	}
}

// GetOrCompute returns the cached payload for (variant, platform, opts) when
// its stored version matches the live version, and otherwise runs compute
// and stores the result. The returned version is the one the payload was
// computed at.
func (c *Cache) GetOrCompute(variant, platform string, opts map[string]string, compute func() (*Payload, error)) (*Payload, uint64, error) {
	key := Key(variant, platform, opts)
	live := c.version(platform)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && e.version == live {
		p := e.payload
		c.mu.Unlock()
		return p, live, nil
	}
	c.mu.Unlock()

	// Compute outside the lock. Two concurrent cold callers may both land
	// here; the second insert simply wins.
	p, err := compute()
	if err != nil {
		return nil, 0, err
	}

	c.mu.Lock()
	if _, ok := c.entries[key]; !ok {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = &entry{key: key, version: live, payload: p}
	c.mu.Unlock()

	return p, live, nil
}

// FlushAll drops every entry unconditionally, regardless of version state.
// Used after a forced resync.
func (c *Cache) FlushAll() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[uint64]*entry, c.capacity)
	c.order = c.order[:0]
	c.mu.Unlock()
	c.log.Info("cache flushed", zap.Int("entries", n))
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
