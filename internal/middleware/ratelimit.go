package middleware

import (
	"log"
	"net/http"
	"strconv"

	"github.com/civicdesk/api/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimit limits action per authenticated user. A nil limiter or a
// storage failure lets the request through.
func RateLimit(l *ratelimit.Limiter, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		p, ok := PrincipalFrom(c)
		if !ok {
			c.Next()
			return
		}

		res, err := l.Check(c.Request.Context(), strconv.FormatInt(p.UserID, 10), action)
		if err != nil {
			log.Printf("Warning: rate limit check failed for %s: %v", action, err)
			c.Next()
			return
		}

		if res.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt, 10))
		}
		if !res.Allowed {
			RecordRateLimited(action)
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
