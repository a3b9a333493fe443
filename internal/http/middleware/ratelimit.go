package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/pull-party-bot/internal/ratelimit"
)

// KeyFunc maps a request to a rate-limit bucket identity.
type KeyFunc func(*gin.Context) string

// KeyByPrincipalOrIP prefers the principal set by BearerAuth and falls back
// to the client IP. Keys are prefixed so the namespaces cannot collide.
func KeyByPrincipalOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if p := c.GetString(principalKey); p != "" {
			return "principal:" + p
		}
		return "ip:" + c.ClientIP()
	}
}

// RateLimit rejects requests whose bucket is empty with 429 and a compact
// JSON body. A nil limiter disables limiting.
//
//	HTTP/1.1 429 Too Many Requests
//	{"request_id": "<uuid>", "code": "rate_limited", "message": "rate limit exceeded"}
func RateLimit(lim *ratelimit.Keyed, key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = KeyByPrincipalOrIP()
	}
	return func(c *gin.Context) {
		if lim == nil || lim.Allow(key(c)) {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
