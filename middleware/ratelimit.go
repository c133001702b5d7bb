package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const visitorIdle = 10 * time.Minute

type visitor struct {
	bucket *rate.Limiter
	seen   time.Time
}

// RateLimit applies a per-IP token bucket. Idle visitors are pruned inline
// whenever the table is touched, so no background goroutine is needed.
func RateLimit(r rate.Limit, burst int) gin.HandlerFunc {
	var (
		mu        sync.Mutex
		visitors  = map[string]*visitor{}
		nextPrune = time.Now().Add(visitorIdle)
	)

	take := func(ip string) bool {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if now.After(nextPrune) {
			for k, v := range visitors {
				if now.Sub(v.seen) > visitorIdle {
					delete(visitors, k)
				}
			}
			nextPrune = now.Add(visitorIdle)
		}

		v, ok := visitors[ip]
		if !ok {
			v = &visitor{bucket: rate.NewLimiter(r, burst)}
			visitors[ip] = v
		}
		v.seen = now
		return v.bucket.Allow()
	}

	return func(c *gin.Context) {
		if !take(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
