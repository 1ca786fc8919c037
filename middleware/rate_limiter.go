package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an IP's limiter survives without requests.
const limiterIdleTTL = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterStore holds one token bucket per client IP.
type rateLimiterStore struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	limit    rate.Limit
	burst    int
}

func newRateLimiterStore(perMinute int) *rateLimiterStore {
	if perMinute <= 0 {
		perMinute = 100
	}
	return &rateLimiterStore{
		limiters: make(map[string]*ipLimiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (s *rateLimiterStore) getLimiter(ip string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.limiters[ip]
	if !exists {
		l = &ipLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[ip] = l
	}
	l.lastSeen = now
	return l.limiter
}

// prune drops limiters idle for longer than limiterIdleTTL.
func (s *rateLimiterStore) prune(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ip, l := range s.limiters {
		if now.Sub(l.lastSeen) > limiterIdleTTL {
			delete(s.limiters, ip)
		}
	}
}

// RateLimitMiddleware limits each client IP to perMinute requests per minute.
func RateLimitMiddleware(perMinute int, logger *zap.Logger) gin.HandlerFunc {
	store := newRateLimiterStore(perMinute)
	var lastPrune time.Time
	var pruneMu sync.Mutex

	return func(c *gin.Context) {
		now := time.Now()
		pruneMu.Lock()
		if now.Sub(lastPrune) > limiterIdleTTL {
			lastPrune = now
			store.prune(now)
		}
		pruneMu.Unlock()

		ip := clientIP(c)
		if !store.getLimiter(ip, now).Allow() {
			logger.Warn("Rate limit exceeded", zap.String("ip", ip), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Try again later."})
			return
		}
		c.Next()
	}
}
