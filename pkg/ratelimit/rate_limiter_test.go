package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg *Config) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client, cfg), mr
}

func testConfig() *Config {
	return &Config{
		Enabled:         true,
		WindowDuration:  time.Minute,
		DefaultRequests: 10,
		CheckinRequests: 3,
		PageRequests:    5,
		HealthRequests:  100,
	}
}

func TestIsAllowedCountsWithinWindow(t *testing.T) {
	rl, _ := newTestLimiter(t, testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := rl.IsAllowed(ctx, "10.0.0.1", RateLimitTypeCheckin)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := rl.IsAllowed(ctx, "10.0.0.1", RateLimitTypeCheckin)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)

	// other clients and other types have their own budget
	res, err = rl.IsAllowed(ctx, "10.0.0.2", RateLimitTypeCheckin)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = rl.IsAllowed(ctx, "10.0.0.1", RateLimitTypePage)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 5, res.Limit)
}

func TestIsAllowedWindowKey(t *testing.T) {
	rl, mr := newTestLimiter(t, testConfig())

	_, err := rl.IsAllowed(context.Background(), "10.0.0.1", RateLimitTypeCheckin)
	require.NoError(t, err)

	key := "lumacheckin:ratelimit:10.0.0.1:checkin"
	require.True(t, mr.Exists(key))
	members, err := mr.ZMembers(key)
	require.NoError(t, err)
	assert.Len(t, members, 1)
	assert.Equal(t, time.Minute, mr.TTL(key))
}

func TestIsAllowedDisabledAndWhitelisted(t *testing.T) {
	cfg := testConfig()
	cfg.WhitelistedIPs = []string{"127.0.0.1"}
	rl, mr := newTestLimiter(t, cfg)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		res, err := rl.IsAllowed(ctx, "127.0.0.1", RateLimitTypeCheckin)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	assert.Empty(t, mr.Keys())

	off := testConfig()
	off.Enabled = false
	res, err := NewRateLimiter(nil, off).IsAllowed(ctx, "10.0.0.1", RateLimitTypeCheckin)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 3, res.Remaining)
}

func TestGetRateLimitType(t *testing.T) {
	tests := map[string]RateLimitType{
		"/health":                     RateLimitTypeHealth,
		"/metrics":                    RateLimitTypeHealth,
		"/api/checkin":                RateLimitTypeCheckin,
		"/scan/:eventId":              RateLimitTypePage,
		"/assets/html5-qrcode.min.js": RateLimitTypePage,
		"/swagger/*any":               RateLimitTypeDefault,
	}
	for path, want := range tests {
		assert.Equal(t, want, getRateLimitType(path), path)
	}
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.CheckinRequests = 1
	rl, _ := newTestLimiter(t, cfg)

	engine := gin.New()
	require.NoError(t, engine.SetTrustedProxies(nil))
	engine.Use(Middleware(rl))
	engine.POST("/api/checkin", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/checkin", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	first := send()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := send()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.JSONEq(t, `{"error":"Rate limit exceeded"}`, second.Body.String())
}

func TestMiddlewareIgnoresSpoofedForwardedFor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.CheckinRequests = 1
	rl, mr := newTestLimiter(t, cfg)

	engine := gin.New()
	require.NoError(t, engine.SetTrustedProxies(nil))
	engine.Use(Middleware(rl))
	engine.POST("/api/checkin", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for _, forged := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		req := httptest.NewRequest(http.MethodPost, "/api/checkin", nil)
		req.Header.Set("X-Forwarded-For", forged)
		req.Header.Set("X-Real-IP", forged)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
	// httptest requests come from 192.0.2.1
	assert.Equal(t, []string{"lumacheckin:ratelimit:192.0.2.1:checkin"}, mr.Keys())
}

func TestMiddlewareHonoursTrustedProxy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl, mr := newTestLimiter(t, testConfig())

	engine := gin.New()
	require.NoError(t, engine.SetTrustedProxies([]string{"192.0.2.1"}))
	engine.Use(Middleware(rl))
	engine.POST("/api/checkin", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/api/checkin", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mr.Exists("lumacheckin:ratelimit:203.0.113.9:checkin"))
}

func TestMiddlewareFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl, mr := newTestLimiter(t, testConfig())
	mr.Close()

	engine := gin.New()
	engine.Use(Middleware(rl))
	engine.POST("/api/checkin", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/checkin", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
