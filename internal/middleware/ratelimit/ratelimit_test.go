package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(rl *Limiter, start time.Time) *time.Time {
	now := start
	rl.now = func() time.Time { return now }
	return &now
}

func TestLimiterBurstThenRefill(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2})
	defer rl.Stop()
	now := fixedClock(rl, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))

	ok, wait := rl.Reserve("1.2.3.4")
	assert.False(t, ok)
	assert.InDelta(t, 30, wait.Seconds(), 0.01)
	assert.True(t, rl.Allow("5.6.7.8"), "clients are counted separately")
	assert.Equal(t, int64(1), rl.Rejected())

	*now = now.Add(31 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"), "one token back after half a minute")
	assert.False(t, rl.Allow("1.2.3.4"))

	*now = now.Add(time.Minute)
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.Equal(t, 2, rl.ActiveClients())
}

func TestLimiterForgetsIdleClients(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 5, IdleTTL: 10 * time.Minute})
	defer rl.Stop()
	now := fixedClock(rl, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	rl.Allow("a")
	*now = now.Add(11 * time.Minute)
	rl.Allow("b")

	assert.Equal(t, 1, rl.forgetIdle())
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestMiddlewareSkipsReads(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()
	fixedClock(rl, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	key := func(*http.Request) string { return "ip" }
	h := rl.Middleware(key, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
}
