package claudeapi

import (
	"sync"
	"time"

	"github.com/elee1766/claudexport/src/convo"
)

// ListCache caches conversation lists per project
type ListCache struct {
	cache map[string]*cachedList
	mu    sync.RWMutex
	ttl   time.Duration
}

type cachedList struct {
	leaves    []convo.LeafSummary
	fetchedAt time.Time
}

// NewListCache creates a new list cache
func NewListCache(ttl time.Duration) *ListCache {
	return &ListCache{
		cache: make(map[string]*cachedList),
		ttl:   ttl,
	}
}

// Get returns a cached list if present and fresh
func (lc *ListCache) Get(key string) ([]convo.LeafSummary, bool) {
	if lc.ttl <= 0 {
		return nil, false
	}
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	cached, ok := lc.cache[key]
	if !ok || time.Since(cached.fetchedAt) >= lc.ttl {
		return nil, false
	}
	return cached.leaves, true
}

// Put stores a list
func (lc *ListCache) Put(key string, leaves []convo.LeafSummary) {
	if lc.ttl <= 0 {
		return
	}
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.cache[key] = &cachedList{leaves: leaves, fetchedAt: time.Now()}
}

// Invalidate removes one list from the cache
func (lc *ListCache) Invalidate(key string) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	delete(lc.cache, key)
}

// CleanupExpired removes expired entries from cache
func (lc *ListCache) CleanupExpired() {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	now := time.Now()
	for key, cached := range lc.cache {
		if now.Sub(cached.fetchedAt) >= lc.ttl {
			delete(lc.cache, key)
		}
	}
}
