package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/pulsefit-server/cache"
	"github.com/pulsefit/pulsefit-server/config"
)

const UserIDKey = "user_id"

const cacheTimeout = 2 * time.Second

// SessionKey is the cache key under which a live token's session is stored.
// Logout deletes it, which kills the token before its JWT expiry.
func SessionKey(token string) string {
	return "session:" + token
}

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return h[len(prefix):], true
}

// Auth authenticates a request: the Bearer token must carry a valid
// signature and its session must still exist in the cache.
func Auth(sec config.SecurityConfig, kv cache.Cache) gin.HandlerFunc {
	reject := func(c *gin.Context, msg string) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
	}

	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			reject(c, "missing token")
			return
		}
		claims, err := ParseToken(token, sec.JWTSecret)
		if err != nil {
			reject(c, "invalid token")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cacheTimeout)
		defer cancel()
		alive, err := kv.Exists(ctx, SessionKey(token))
		if err != nil || !alive {
			reject(c, "session expired")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// GetUserID returns the authenticated user ID, or 0 before Auth has run.
func GetUserID(c *gin.Context) int64 {
	if v, ok := c.Get(UserIDKey); ok {
		return v.(int64)
	}
	return 0
}
