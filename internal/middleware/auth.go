package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/civicdesk/api/internal/auth"
	"github.com/civicdesk/api/internal/model"
	"github.com/civicdesk/api/internal/service"
	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// AccountLookup loads the stored account behind a token.
type AccountLookup interface {
	Get(ctx context.Context, id int64) (*model.User, error)
}

// AuthMiddleware requires a valid JWT token and stores the caller's
// auth.Principal in the context. When accounts is set, officer and admin
// tokens are checked against the stored account: a deactivated account is
// refused and the stored role replaces the one in the token.
func AuthMiddleware(jwtSecret string, accounts AccountLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := auth.ValidateAccessToken(parts[1], jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		p, err := auth.PrincipalFromClaims(claims)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token role"})
			c.Abort()
			return
		}

		if accounts != nil && !p.IsCitizen() {
			u, err := accounts.Get(c.Request.Context(), p.UserID)
			switch {
			case errors.Is(err, service.ErrNotFound):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
				c.Abort()
				return
			case err != nil:
				log.Printf("Error loading account %d: %v", p.UserID, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				c.Abort()
				return
			case !u.Active:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "account is deactivated"})
				c.Abort()
				return
			}
			p.Role = u.Role
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware. It rejects callers holding
// none of roles.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		if !p.HasRole(roles...) {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by AuthMiddleware.
func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}
