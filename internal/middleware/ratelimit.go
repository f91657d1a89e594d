package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/pkg/auth"
	"github.com/bebokaka99/truyenviethay-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxTrackedUsers = 10000

// RateLimiter keeps one token bucket per authenticated user. Only the most
// recently seen users are tracked; an evicted user starts with a full bucket.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache
	limit    rate.Limit
	burst    int
}

func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return newRateLimiter(perMinute, burst, maxTrackedUsers)
}

func newRateLimiter(perMinute, burst, size int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	if burst <= 0 {
		burst = 5
	}
	if size <= 0 {
		size = maxTrackedUsers
	}
	// lru.New only fails for a non-positive size
	limiters, _ := lru.New(size)
	return &RateLimiter{
		limiters: limiters,
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
	}
}

func (l *RateLimiter) limiter(userID int64) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters.Get(userID); ok {
		return lim.(*rate.Limiter)
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.limiters.Add(userID, lim)
	return lim
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.UserID(c)
		if !ok {
			c.Next()
			return
		}

		if !l.limiter(userID).Allow() {
			logger.Logger().Info("rate limited", zap.Int64("user_id", userID), zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
