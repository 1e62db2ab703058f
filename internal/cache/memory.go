package cache

import (
	"context"
	"path"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

const defaultMemoryEntries = 500

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is the in-process fallback used when Redis is not configured.
// It keeps at most size entries in an LRU and checks TTLs on read. Pattern
// deletes walk every key, which is acceptable at this capacity.
type MemoryStore struct {
	lru    *lru.Cache[string, memoryEntry]
	hits   atomic.Int64
	misses atomic.Int64
}

func NewMemoryStore(size int) *MemoryStore {
	if size <= 0 {
		size = defaultMemoryEntries
	}
	l, err := lru.New[string, memoryEntry](size)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create LRU cache")
	}
	return &MemoryStore{lru: l}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	entry, ok := m.lru.Get(key)
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		m.lru.Remove(key)
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return entry.value, true
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.lru.Add(key, memoryEntry{value: value, expiresAt: time.Now().Add(ttl)})
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) {
	for _, key := range keys {
		m.lru.Remove(key)
	}
}

func (m *MemoryStore) DeletePattern(_ context.Context, pattern string) {
	for _, key := range m.lru.Keys() {
		matched, err := path.Match(pattern, key)
		if err != nil {
			log.Warn().Str("pattern", pattern).Err(err).Msg("bad cache pattern")
			return
		}
		if matched {
			m.lru.Remove(key)
		}
	}
}

func (m *MemoryStore) Flush(_ context.Context) {
	m.lru.Purge()
}

func (m *MemoryStore) Stats(_ context.Context) Stats {
	hits, misses := m.hits.Load(), m.misses.Load()
	return Stats{
		Backend:        m.Backend(),
		Entries:        m.lru.Len(),
		KeyspaceHits:   hits,
		KeyspaceMisses: misses,
		HitRate:        hitRate(hits, misses),
	}
}

func (m *MemoryStore) Backend() string { return "memory" }
