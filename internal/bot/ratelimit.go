package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// chatLimiter holds one token bucket per chat (Telegram chat id or phone)
type chatLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
}

func newChatLimiter(perMinute int) *chatLimiter {
	return &chatLimiter{limiters: make(map[string]*rate.Limiter), perMin: perMinute}
}

// Allow reports whether the chat may send another message; non-positive limits disable it
func (l *chatLimiter) Allow(chat string) bool {
	if l == nil || l.perMin <= 0 {
		return true
	}

	l.mu.Lock()
	limiter, ok := l.limiters[chat]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)
		l.limiters[chat] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}
