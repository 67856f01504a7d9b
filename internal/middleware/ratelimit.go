package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Limiter counts submissions per key in fixed windows. It guards the
// credential-bearing forms (login, register, verify) against scripted
// resubmission from a view.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	count   int
	resetAt time.Time
}

func NewLimiter(limit int, period time.Duration) *Limiter {
	return NewLimiterWithNow(limit, period, time.Now)
}

func NewLimiterWithNow(limit int, period time.Duration, now func() time.Time) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     now,
		stop:    make(chan struct{}),
	}
	if period > 0 {
		go l.sweep()
	}
	return l
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.Prune()
		}
	}
}

// Prune drops windows that have already expired.
func (l *Limiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.windows[key]
	if !exists || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(l.period)}
		return true
	}

	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Throttle limits each viewer per route. Requests without a viewer fall back
// to the client IP.
func Throttle(l *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := ViewerIDFromContext(c)
		if !ok {
			key = c.ClientIP()
		}
		if !l.Allow(key + " " + c.FullPath()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts. Please wait a moment."})
			c.Abort()
			return
		}
		c.Next()
	}
}
