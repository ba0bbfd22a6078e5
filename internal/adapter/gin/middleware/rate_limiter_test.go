package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func setupRateLimited(t *testing.T, cfg RateLimiterConfig) (*gin.Engine, *fakeClock, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter(client, cfg, zaptest.NewLogger(t))
	rl.now = clock.Now

	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/users/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/users/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r, clock, mr
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	r, _, _ := setupRateLimited(t, RateLimiterConfig{RequestsPerSecond: 1, BurstCapacity: 3})

	for i := range 3 {
		w := serve(r, http.MethodGet, "/users/1", nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}

	w := serve(r, http.MethodGet, "/users/1", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"error":"rate_limit_exceeded"`)
}

func TestRateLimiter_Refills(t *testing.T) {
	r, clock, _ := setupRateLimited(t, RateLimiterConfig{RequestsPerSecond: 2, BurstCapacity: 1})

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/users/1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/users/1", nil).Code)

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/users/1", nil).Code)
}

func TestRateLimiter_BucketPerRouteTemplate(t *testing.T) {
	r, _, _ := setupRateLimited(t, RateLimiterConfig{RequestsPerSecond: 1, BurstCapacity: 1})

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/users/1", nil).Code)
	// Different id, same route template, same bucket
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/users/2", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/users/", nil).Code)
}

func TestRateLimiter_BucketExpires(t *testing.T) {
	r, _, mr := setupRateLimited(t, RateLimiterConfig{RequestsPerSecond: 1, BurstCapacity: 2})

	serve(r, http.MethodGet, "/users/1", nil)
	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, 3*time.Second, mr.TTL(keys[0]))
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	r, _, mr := setupRateLimited(t, RateLimiterConfig{RequestsPerSecond: 1, BurstCapacity: 1})
	mr.Close()

	for range 3 {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/users/1", nil).Code)
	}
}
