package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type countingLimiter struct {
	max  int
	seen map[string]int
	err  error
}

func (c *countingLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	c.seen[key]++
	return c.seen[key] <= c.max, nil
}

func TestMiddleware(t *testing.T) {
	limiter := &countingLimiter{max: 2, seen: make(map[string]int)}
	h := Middleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := func(addr string, n int) []int {
		var out []int
		for i := 0; i < n; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/bookings", nil)
			req.RemoteAddr = addr
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			out = append(out, rr.Code)
		}
		return out
	}

	assert.Equal(t, []int{200, 200, 429}, codes("10.0.0.1:5000", 3))
	assert.Equal(t, []int{429}, codes("10.0.0.1:5001", 1))
	assert.Equal(t, []int{200}, codes("10.0.0.2:5000", 1))
}

func TestMiddlewareFailsOpen(t *testing.T) {
	limiter := &countingLimiter{err: errors.New("redis down")}
	h := Middleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestWindowKey(t *testing.T) {
	l := NewRedisLimiter(redis.NewClient(&redis.Options{Addr: "localhost:6379"}), time.Minute, 5)
	l.now = func() time.Time { return time.Unix(600, 0) }
	assert.Equal(t, "rate_limit:10.0.0.1:10", l.windowKey("10.0.0.1"))

	l.now = func() time.Time { return time.Unix(659, 0) }
	assert.Equal(t, "rate_limit:10.0.0.1:10", l.windowKey("10.0.0.1"))
}
