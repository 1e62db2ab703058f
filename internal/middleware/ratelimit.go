package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// windowStore is the sorted-set surface the limiter runs on. The Redis
// implementation does slide as one transaction; members are request
// timestamps scored by themselves.
type windowStore interface {
	// slide drops members at or below cutoff, records member at score now
	// with the given ttl, and returns the count from before the add.
	slide(ctx context.Context, key string, cutoff, now float64, member string, ttl time.Duration) (int64, error)
	// trim drops aged members and returns the remaining count.
	trim(ctx context.Context, key string, cutoff float64) (int64, error)
	oldest(ctx context.Context, key string) (float64, bool)
	remove(ctx context.Context, key, member string)
	clear(ctx context.Context, key string) error
}

// RateLimiter implements sliding-window rate limiting over Redis sorted
// sets. Each window member is a request timestamp; expired members are
// trimmed before counting. When Redis is unavailable the limiter fails open
// so legitimate traffic is never blocked by an outage.
type RateLimiter struct {
	store windowStore
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	rl := &RateLimiter{}
	if client != nil {
		rl.store = &redisWindow{client: client}
	}
	return rl
}

// Allow reports whether a request under key fits in the window. When it does
// not, retryAfter is the number of seconds until the oldest request ages out.
func (rl *RateLimiter) Allow(c *gin.Context, key string, limit int, window time.Duration) (bool, int) {
	if rl.store == nil {
		return true, 0
	}
	now := float64(time.Now().UnixNano()) / 1e9
	return rl.allowAt(c.Request.Context(), key, limit, window, now)
}

func (rl *RateLimiter) allowAt(ctx context.Context, key string, limit int, window time.Duration, now float64) (bool, int) {
	windowSec := window.Seconds()
	member := strconv.FormatFloat(now, 'f', 9, 64)

	count, err := rl.store.slide(ctx, key, now-windowSec, now, member, window+time.Second)
	if err != nil {
		log.Error().Str("key", key).Err(err).Msg("rate limit check failed, allowing request")
		return true, 0
	}
	if count < int64(limit) {
		return true, 0
	}

	// Over the limit: take the request back out and tell the client when the
	// oldest remaining one leaves the window.
	retryAfter := int(windowSec)
	if score, ok := rl.store.oldest(ctx, key); ok {
		retryAfter = int(windowSec-(now-score)) + 1
	}
	rl.store.remove(ctx, key, member)
	if retryAfter < 1 {
		retryAfter = 1
	}
	return false, retryAfter
}

// Status reports the remaining budget for key without consuming a request.
func (rl *RateLimiter) Status(c *gin.Context, key string, limit int, window time.Duration) (remaining, retryAfter int) {
	if rl.store == nil {
		return limit, 0
	}
	now := float64(time.Now().UnixNano()) / 1e9
	return rl.statusAt(c.Request.Context(), key, limit, window, now)
}

func (rl *RateLimiter) statusAt(ctx context.Context, key string, limit int, window time.Duration, now float64) (remaining, retryAfter int) {
	windowSec := window.Seconds()

	count, err := rl.store.trim(ctx, key, now-windowSec)
	if err != nil {
		return limit, 0
	}
	remaining = limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	if remaining == 0 {
		if score, ok := rl.store.oldest(ctx, key); ok {
			retryAfter = int(score+windowSec-now) + 1
		}
	}
	return remaining, retryAfter
}

// Clear removes the window for a key (admin escape hatch).
func (rl *RateLimiter) Clear(c *gin.Context, key string) bool {
	if rl.store == nil {
		return false
	}
	if err := rl.store.clear(c.Request.Context(), key); err != nil {
		log.Error().Str("key", key).Err(err).Msg("failed to clear rate limit")
		return false
	}
	log.Info().Str("key", key).Msg("rate limit cleared")
	return true
}

type redisWindow struct {
	client *redis.Client
}

func (w *redisWindow) slide(ctx context.Context, key string, cutoff, now float64, member string, ttl time.Duration) (int64, error) {
	pipe := w.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatFloat(cutoff, 'f', 9, 64))
	card := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, &redis.Z{Score: now, Member: member})
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return card.Val(), nil
}

func (w *redisWindow) trim(ctx context.Context, key string, cutoff float64) (int64, error) {
	w.client.ZRemRangeByScore(ctx, key, "0", strconv.FormatFloat(cutoff, 'f', 9, 64))
	return w.client.ZCard(ctx, key).Result()
}

func (w *redisWindow) oldest(ctx context.Context, key string) (float64, bool) {
	zs, err := w.client.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil || len(zs) == 0 {
		return 0, false
	}
	return zs[0].Score, true
}

func (w *redisWindow) remove(ctx context.Context, key, member string) {
	w.client.ZRem(ctx, key, member)
}

func (w *redisWindow) clear(ctx context.Context, key string) error {
	return w.client.Del(ctx, key).Err()
}

// IPKey scopes a limit to the client address and route group.
func IPKey(c *gin.Context, scope string) string {
	return fmt.Sprintf("rate_limit:ip:%s:%s", c.ClientIP(), scope)
}

// UserKey scopes a limit to the authenticated user, falling back to the IP
// for anonymous requests.
func UserKey(c *gin.Context, scope string) string {
	if user := CurrentUser(c); user != nil {
		return fmt.Sprintf("rate_limit:user:%d:%s", user.ID, scope)
	}
	return IPKey(c, scope)
}

// Limit builds the middleware. keyFunc picks the window identity (IPKey or
// UserKey); scope separates unrelated endpoints sharing one identity.
func (rl *RateLimiter) Limit(limit int, window time.Duration, scope string, keyFunc func(*gin.Context, string) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c, scope)
		allowed, retryAfter := rl.Allow(c, key, limit, window)
		if allowed {
			c.Next()
			return
		}

		log.Warn().
			Str("key", key).
			Int("limit", limit).
			Dur("window", window).
			Str("path", c.Request.URL.Path).
			Msg("rate limit exceeded")

		c.Header("Retry-After", strconv.Itoa(retryAfter))
		if wantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}
		c.HTML(http.StatusTooManyRequests, "error.html", gin.H{
			"Error": fmt.Sprintf("Too many requests. Please try again in %d seconds.", retryAfter),
		})
		c.Abort()
	}
}

// AuthLimit: 5 attempts per 5 minutes per IP for login/register/reset.
func (rl *RateLimiter) AuthLimit(scope string) gin.HandlerFunc {
	return rl.Limit(5, 5*time.Minute, scope, IPKey)
}

// APILimit: 100 requests per hour per user (or IP when anonymous).
func (rl *RateLimiter) APILimit() gin.HandlerFunc {
	return rl.Limit(100, time.Hour, "api", UserKey)
}

// GeneralLimit: 60 requests per minute per IP.
func (rl *RateLimiter) GeneralLimit() gin.HandlerFunc {
	return rl.Limit(60, time.Minute, "web", IPKey)
}

func wantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
