package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesinsight/backend/internal/interfaces/http/dto"
)

// fakeClock lets the limiter refill deterministically.
type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func withClock(rl *RateLimiter, c *fakeClock) *RateLimiter {
	rl.now = c.now
	return rl
}

func TestRateLimiter_Allow(t *testing.T) {
	clock := newFakeClock()
	rl := withClock(NewRateLimiter(3, time.Minute), clock)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("a"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "keys are independent")

	clock.advance(20 * time.Second)
	assert.True(t, rl.Allow("a"), "one token refills every window/limit")
	assert.False(t, rl.Allow("a"))
}

func TestRateLimiter_Remaining(t *testing.T) {
	clock := newFakeClock()
	rl := withClock(NewRateLimiter(5, time.Minute), clock)

	assert.Equal(t, 5, rl.Remaining("a"))
	rl.Allow("a")
	rl.Allow("a")
	assert.Equal(t, 3, rl.Remaining("a"))

	clock.advance(time.Minute)
	assert.Equal(t, 5, rl.Remaining("a"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	clock := newFakeClock()
	rl := withClock(NewRateLimiter(1, time.Minute), clock)

	rl.Allow("old")
	clock.advance(90 * time.Second)
	rl.Allow("fresh")
	clock.advance(60 * time.Second)

	assert.Equal(t, 1, rl.Cleanup())
	assert.Equal(t, 1, rl.Remaining("old"), "dropped keys start with a full bucket")
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	assert.Equal(t, 1, rl.limit)
	assert.Equal(t, time.Minute, rl.window)
}

func TestRateLimitMiddleware(t *testing.T) {
	clock := newFakeClock()
	rl := withClock(NewRateLimiter(2, time.Minute), clock)

	router := gin.New()
	router.Use(RequestID(), RateLimit(rl))
	router.POST("/exports", func(c *gin.Context) { c.Status(http.StatusCreated) })

	post := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/exports", nil))
		return w
	}

	w := post()
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusCreated, post().Code)

	w = post()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "31", w.Header().Get("Retry-After"))

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeRateLimited, resp.Error.Code)
	assert.Equal(t, w.Header().Get(RequestIDKey), resp.Error.RequestID)
}

func TestRateLimitByKey(t *testing.T) {
	rl := withClock(NewRateLimiter(1, time.Minute), newFakeClock())

	router := gin.New()
	router.Use(RateLimitByKey(rl, func(c *gin.Context) string { return c.GetHeader("X-Client") }))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Client", client)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, get("dash"))
	assert.Equal(t, http.StatusTooManyRequests, get("dash"))
	assert.Equal(t, http.StatusOK, get("cli"))
}
