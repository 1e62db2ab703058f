package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// RedisStore backs the cache with a shared Redis instance. All keys live
// under a configurable prefix so pattern deletes never touch foreign data.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(key string) string {
	return r.prefix + key
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Warn().Str("key", key).Err(err).Msg("cache get failed")
		return nil, false
	}
	return data, true
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		log.Warn().Str("key", key).Err(err).Msg("cache set failed")
	}
}

func (r *RedisStore) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		log.Warn().Strs("keys", keys).Err(err).Msg("cache delete failed")
	}
}

// DeletePattern scans for keys matching the prefixed glob and deletes them in
// batches. A failed scan is logged and abandoned; stale entries then live
// until their TTL expires.
func (r *RedisStore) DeletePattern(ctx context.Context, pattern string) {
	match := r.key(pattern)
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			log.Warn().Str("pattern", pattern).Err(err).Msg("cache pattern scan failed")
			return
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				log.Warn().Str("pattern", pattern).Err(err).Msg("cache pattern delete failed")
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

// Flush removes only this app's keys, not the whole Redis database.
func (r *RedisStore) Flush(ctx context.Context) {
	r.DeletePattern(ctx, "*")
}

func (r *RedisStore) Stats(ctx context.Context) Stats {
	stats := Stats{Backend: r.Backend()}

	info, err := r.client.Info(ctx, "stats", "memory", "clients").Result()
	if err != nil {
		log.Warn().Err(err).Msg("failed to read redis info")
		return stats
	}

	fields := parseInfo(info)
	stats.ConnectedClients, _ = strconv.ParseInt(fields["connected_clients"], 10, 64)
	stats.UsedMemory = fields["used_memory_human"]
	stats.KeyspaceHits, _ = strconv.ParseInt(fields["keyspace_hits"], 10, 64)
	stats.KeyspaceMisses, _ = strconv.ParseInt(fields["keyspace_misses"], 10, 64)
	stats.HitRate = hitRate(stats.KeyspaceHits, stats.KeyspaceMisses)
	return stats
}

func (r *RedisStore) Backend() string { return "redis" }

// parseInfo turns INFO's "key:value" lines into a map.
func parseInfo(info string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(info, "\r\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, ':'); i > 0 {
			fields[line[:i]] = strings.TrimSpace(line[i+1:])
		}
	}
	return fields
}
