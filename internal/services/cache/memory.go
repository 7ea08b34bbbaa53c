package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTTL applies when Set is given no TTL
const DefaultTTL = 30 * time.Second

// Cache stores byte values with an expiry
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Stats counts cache activity
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int64
	MaxSize   int64
}

// MemoryCache is a size bounded in-process cache. Expired entries are
// dropped when read and swept when room is needed.
type MemoryCache struct {
	mu       sync.Mutex
	items    map[string]*entry
	maxBytes int64
	size     int64
	now      func() time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type entry struct {
	value  []byte
	expiry time.Time
	size   int64
}

// NewMemoryCache creates a cache holding at most maxSizeMB megabytes.
// Zero means unbounded.
func NewMemoryCache(maxSizeMB int64) *MemoryCache {
	return &MemoryCache{
		items:    make(map[string]*entry),
		maxBytes: maxSizeMB * 1024 * 1024,
		now:      time.Now,
	}
}

func (mc *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item, ok := mc.items[key]
	if ok && !mc.now().Before(item.expiry) {
		mc.remove(key, item)
		ok = false
	}
	if !ok {
		mc.misses.Add(1)
		return nil, false
	}
	mc.hits.Add(1)
	return item.value, true
}

func (mc *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	size := int64(len(key) + len(value))

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if old, ok := mc.items[key]; ok {
		mc.size -= old.size
		delete(mc.items, key)
	}
	mc.makeRoom(size)

	mc.items[key] = &entry{value: value, expiry: mc.now().Add(ttl), size: size}
	mc.size += size
	return nil
}

func (mc *MemoryCache) Delete(ctx context.Context, key string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if item, ok := mc.items[key]; ok {
		mc.size -= item.size
		delete(mc.items, key)
	}
	return nil
}

// Stats returns a snapshot of the counters
func (mc *MemoryCache) Stats() Stats {
	mc.mu.Lock()
	size := mc.size
	mc.mu.Unlock()

	return Stats{
		Hits:      mc.hits.Load(),
		Misses:    mc.misses.Load(),
		Evictions: mc.evictions.Load(),
		Size:      size,
		MaxSize:   mc.maxBytes,
	}
}

// makeRoom evicts expired entries, then arbitrary ones, until size fits.
// Callers hold mu.
func (mc *MemoryCache) makeRoom(size int64) {
	if mc.maxBytes <= 0 || mc.size+size <= mc.maxBytes {
		return
	}

	now := mc.now()
	for key, item := range mc.items {
		if !now.Before(item.expiry) {
			mc.remove(key, item)
		}
	}

	for key, item := range mc.items {
		if mc.size+size <= mc.maxBytes {
			return
		}
		mc.remove(key, item)
	}
}

func (mc *MemoryCache) remove(key string, item *entry) {
	delete(mc.items, key)
	mc.size -= item.size
	mc.evictions.Add(1)
}
