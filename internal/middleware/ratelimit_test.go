package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// fakeWindow keeps sorted-set members in maps, score semantics matching the
// Redis implementation (trim is inclusive of the cutoff).
type fakeWindow struct {
	sets map[string]map[string]float64
	err  error
}

func newFakeWindow() *fakeWindow {
	return &fakeWindow{sets: map[string]map[string]float64{}}
}

func (w *fakeWindow) slide(_ context.Context, key string, cutoff, now float64, member string, _ time.Duration) (int64, error) {
	if w.err != nil {
		return 0, w.err
	}
	set := w.sets[key]
	if set == nil {
		set = map[string]float64{}
		w.sets[key] = set
	}
	for m, score := range set {
		if score <= cutoff {
			delete(set, m)
		}
	}
	count := int64(len(set))
	set[member] = now
	return count, nil
}

func (w *fakeWindow) trim(_ context.Context, key string, cutoff float64) (int64, error) {
	if w.err != nil {
		return 0, w.err
	}
	for m, score := range w.sets[key] {
		if score <= cutoff {
			delete(w.sets[key], m)
		}
	}
	return int64(len(w.sets[key])), nil
}

func (w *fakeWindow) oldest(_ context.Context, key string) (float64, bool) {
	var best float64
	found := false
	for _, score := range w.sets[key] {
		if !found || score < best {
			best, found = score, true
		}
	}
	return best, found
}

func (w *fakeWindow) remove(_ context.Context, key, member string) {
	delete(w.sets[key], member)
}

func (w *fakeWindow) clear(_ context.Context, key string) error {
	delete(w.sets, key)
	return nil
}

func testContext(method, path string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	return c, w
}

func TestAllowFailsOpenWithoutRedis(t *testing.T) {
	rl := NewRateLimiter(nil)
	c, _ := testContext(http.MethodGet, "/blog/")

	for i := 0; i < 100; i++ {
		allowed, retryAfter := rl.Allow(c, "rate_limit:ip:1.2.3.4:web", 5, time.Minute)
		assert.True(t, allowed)
		assert.Zero(t, retryAfter)
	}
}

func TestAllowAdmitsRequestsUnderTheLimit(t *testing.T) {
	rl := &RateLimiter{store: newFakeWindow()}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, retryAfter := rl.allowAt(ctx, "k", 5, time.Minute, 100.0+float64(i))
		assert.True(t, allowed)
		assert.Zero(t, retryAfter)
	}
}

func TestAllowRejectsOverLimitWithRetryAfter(t *testing.T) {
	fw := newFakeWindow()
	rl := &RateLimiter{store: fw}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _ := rl.allowAt(ctx, "k", 3, time.Minute, 100.0+float64(i))
		assert.True(t, allowed)
	}

	allowed, retryAfter := rl.allowAt(ctx, "k", 3, time.Minute, 103.0)
	assert.False(t, allowed)
	// The oldest entry sits at t=100 in a 60s window: it ages out 57s after
	// t=103, plus one second of slack.
	assert.Equal(t, 58, retryAfter)
	// The rejected request must not occupy a window slot.
	assert.Len(t, fw.sets["k"], 3)
}

func TestAllowAdmitsAgainAfterWindowPasses(t *testing.T) {
	rl := &RateLimiter{store: newFakeWindow()}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rl.allowAt(ctx, "k", 3, time.Minute, 100.0+float64(i))
	}
	allowed, _ := rl.allowAt(ctx, "k", 3, time.Minute, 103.0)
	assert.False(t, allowed)

	allowed, retryAfter := rl.allowAt(ctx, "k", 3, time.Minute, 161.5)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
}

func TestAllowFailsOpenOnStoreError(t *testing.T) {
	fw := newFakeWindow()
	fw.err = errors.New("connection refused")
	rl := &RateLimiter{store: fw}

	allowed, retryAfter := rl.allowAt(context.Background(), "k", 1, time.Minute, 100.0)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
}

func TestStatusCountsConsumedRequests(t *testing.T) {
	rl := &RateLimiter{store: newFakeWindow()}
	ctx := context.Background()

	rl.allowAt(ctx, "k", 3, time.Minute, 100.0)
	rl.allowAt(ctx, "k", 3, time.Minute, 101.0)

	remaining, retryAfter := rl.statusAt(ctx, "k", 3, time.Minute, 102.0)
	assert.Equal(t, 1, remaining)
	assert.Zero(t, retryAfter)

	rl.allowAt(ctx, "k", 3, time.Minute, 102.5)
	remaining, retryAfter = rl.statusAt(ctx, "k", 3, time.Minute, 103.0)
	assert.Zero(t, remaining)
	// Oldest at t=100 leaves the window at t=160.
	assert.Equal(t, 58, retryAfter)
}

func TestStatusWithoutRedisReportsFullBudget(t *testing.T) {
	rl := NewRateLimiter(nil)
	c, _ := testContext(http.MethodGet, "/blog/")

	remaining, retryAfter := rl.Status(c, "any", 60, time.Minute)
	assert.Equal(t, 60, remaining)
	assert.Zero(t, retryAfter)
}

func TestIPKeyScopesByAddressAndScope(t *testing.T) {
	c, _ := testContext(http.MethodPost, "/auth/login")
	c.Request.RemoteAddr = "203.0.113.9:4821"

	assert.Equal(t, "rate_limit:ip:203.0.113.9:login", IPKey(c, "login"))
	assert.NotEqual(t, IPKey(c, "login"), IPKey(c, "register"))
}

func TestUserKeyPrefersAuthenticatedUser(t *testing.T) {
	c, _ := testContext(http.MethodGet, "/api/v1/posts")
	c.Request.RemoteAddr = "203.0.113.9:4821"

	assert.Equal(t, "rate_limit:ip:203.0.113.9:api", UserKey(c, "api"))

	c.Set(CheckUserKey, &models.User{ID: 42})
	assert.Equal(t, "rate_limit:user:42:api", UserKey(c, "api"))
}

func TestWantsJSON(t *testing.T) {
	c, _ := testContext(http.MethodGet, "/api/v1/posts")
	assert.True(t, wantsJSON(c))

	c, _ = testContext(http.MethodGet, "/blog/")
	assert.False(t, wantsJSON(c))

	c, _ = testContext(http.MethodGet, "/blog/")
	c.Request.Header.Set("Accept", "application/json")
	assert.True(t, wantsJSON(c))
}
