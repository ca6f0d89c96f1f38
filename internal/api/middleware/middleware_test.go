package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryCounter struct {
	counts    map[string]int64
	expires   map[string]time.Duration
	err       error
	expireErr error
}

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (m *memoryCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "incr", key)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	m.counts[key]++
	cmd.SetVal(m.counts[key])
	return cmd
}

func (m *memoryCounter) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx, "expire", key)
	if m.expireErr != nil {
		cmd.SetErr(m.expireErr)
		return cmd
	}
	m.expires[key] = expiration
	cmd.SetVal(true)
	return cmd
}

// TTL 与 Redis 一致：键不存在返回 -2，没有过期时间返回 -1。
func (m *memoryCounter) TTL(ctx context.Context, key string) *redis.DurationCmd {
	cmd := redis.NewDurationCmd(ctx, time.Second, "ttl", key)
	switch ttl, ok := m.expires[key]; {
	case m.counts[key] == 0:
		cmd.SetVal(-2)
	case !ok:
		cmd.SetVal(-1)
	default:
		cmd.SetVal(ttl)
	}
	return cmd
}

func TestCorrelationID_GeneratesAndEchoes(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationIDMiddleware())
	var seen string
	router.GET("/", func(c *gin.Context) { seen = GetCorrelationID(c) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(CorrelationIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

func TestInternalSecret(t *testing.T) {
	cases := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"not configured", "", "anything", http.StatusNotFound},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"wrong header", "s3cret", "nope", http.StatusUnauthorized},
		{"ok", "s3cret", "s3cret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/internal", InternalSecretMiddleware(tc.secret), func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/internal", nil)
			if tc.header != "" {
				req.Header.Set(InternalSecretHeader, tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	counter := newMemoryCounter()
	router := gin.New()
	router.POST("/submit", RateLimitMiddleware(counter, "rl", 2, time.Hour), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, time.Hour, counter.expires["rl:10.0.0.1"])
}

func TestRateLimit_FailsOpen(t *testing.T) {
	counter := newMemoryCounter()
	counter.err = errors.New("redis: connection refused")
	router := gin.New()
	router.POST("/submit", RateLimitMiddleware(counter, "rl", 1, time.Hour), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/submit", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_RepairsMissingTTL(t *testing.T) {
	counter := newMemoryCounter()
	counter.expireErr = errors.New("redis: i/o timeout")
	router := gin.New()
	router.POST("/submit", RateLimitMiddleware(counter, "rl", 1, time.Hour), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.RemoteAddr = "10.0.0.2:5555"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send())
	_, armed := counter.expires["rl:10.0.0.2"]
	require.False(t, armed)

	counter.expireErr = nil
	require.Equal(t, http.StatusTooManyRequests, send())
	assert.Equal(t, time.Hour, counter.expires["rl:10.0.0.2"])
}

func TestRateLimit_KeepsExistingTTL(t *testing.T) {
	counter := newMemoryCounter()
	counter.counts["rl:10.0.0.3"] = 5
	counter.expires["rl:10.0.0.3"] = time.Minute
	router := gin.New()
	router.POST("/submit", RateLimitMiddleware(counter, "rl", 1, time.Hour), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	req.RemoteAddr = "10.0.0.3:5555"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, time.Minute, counter.expires["rl:10.0.0.3"])
}

func TestRateLimit_Disabled(t *testing.T) {
	counter := newMemoryCounter()
	router := gin.New()
	router.POST("/submit", RateLimitMiddleware(counter, "rl", 0, time.Hour), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/submit", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, counter.counts)
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(RecoveryMiddleware())
	router.GET("/boom", func(*gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Server error","message":"An unexpected error occurred"}`, rec.Body.String())
}
