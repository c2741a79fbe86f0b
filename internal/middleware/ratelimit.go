package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/studyrail/attempt-backend/internal/response"
)

// RateLimiter implements a fixed-window counter keyed by caller identity.
// Counting is per authenticated user so a shared school NAT does not starve
// classmates of submissions.
type RateLimiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	size     time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter creates a RateLimiter (e.g., 10 requests per 60s window)
// and starts its sweeper. Call Stop to release the sweeper when the limiter
// is no longer needed.
func NewRateLimiter(limit int, size time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		size:    size,
		stop:    make(chan struct{}),
	}

	// Sweep expired windows every minute.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.cleanup()
			case <-rl.stop:
				return
			}
		}
	}()

	return rl
}

// Stop terminates the sweeper goroutine. Counting still works afterwards;
// expired windows are then reclaimed lazily by Allow. Safe to call twice.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Allow counts one request for the identifier. When the limit is exceeded it
// returns false together with the instant the current window resets.
func (rl *RateLimiter) Allow(identifier string) (bool, time.Time) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, exists := rl.windows[identifier]
	if !exists || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(rl.size)}
		rl.windows[identifier] = w
	}

	if w.count >= rl.limit {
		return false, w.resetAt
	}
	w.count++
	return true, w.resetAt
}

// Middleware returns a Gin middleware that rate-limits requests per user,
// falling back to the client IP for unauthenticated calls.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := c.ClientIP()
		if claims := GetClaims(c); claims != nil {
			identifier = "user:" + strconv.Itoa(claims.UserID)
		}

		allowed, resetAt := rl.Allow(identifier)
		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) cleanup() {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for id, w := range rl.windows {
		if now.After(w.resetAt) {
			delete(rl.windows, id)
		}
	}
}
