// Package cache provides the key-value caching layer: deterministic key
// builders, a Store abstraction over Redis with an in-process LRU fallback,
// and pattern-based invalidation. Cache failures are logged and swallowed;
// callers always fall back to the database.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// Store is the backing key-value store. Keys are logical (unprefixed);
// implementations may namespace them.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
	// DeletePattern removes every key matching a glob pattern like "posts:*".
	DeletePattern(ctx context.Context, pattern string)
	Flush(ctx context.Context)
	Stats(ctx context.Context) Stats
	Backend() string
}

// Stats mirrors what the admin cache panel displays.
type Stats struct {
	Backend          string  `json:"backend"`
	Entries          int     `json:"entries,omitempty"`
	ConnectedClients int64   `json:"connected_clients,omitempty"`
	UsedMemory       string  `json:"used_memory,omitempty"`
	KeyspaceHits     int64   `json:"keyspace_hits"`
	KeyspaceMisses   int64   `json:"keyspace_misses"`
	HitRate          float64 `json:"hit_rate"`
}

// HitRate as a percentage, 0 when nothing was looked up yet.
func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// GetJSON fetches key and unmarshals it into out. A corrupt entry is treated
// as a miss and dropped.
func GetJSON(ctx context.Context, store Store, key string, out interface{}) bool {
	data, ok := store.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Warn().Str("key", key).Err(err).Msg("cache entry is not valid JSON, dropping")
		store.Delete(ctx, key)
		return false
	}
	return true
}

// SetJSON marshals v and stores it under key. Marshal errors are logged and
// the entry is simply not cached.
func SetJSON(ctx context.Context, store Store, key string, v interface{}, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Str("key", key).Err(err).Msg("failed to marshal cache value")
		return
	}
	store.Set(ctx, key, data, ttl)
}
