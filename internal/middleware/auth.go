package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"parcelroute/internal/domain"
)

const principalKey = "principal"

// TokenValidator resolves a bearer credential to a principal.
type TokenValidator interface {
	Validate(token string) (domain.Principal, error)
}

// Authenticate validates the bearer credential from the Authorization header
// or, for WebSocket clients that cannot set headers, the `token` query
// parameter. Requests without a valid credential are rejected with 401.
func Authenticate(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		if raw == "" {
			raw = c.Query("token")
		}
		if strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		principal, err := tokens.Validate(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireRole admits principals holding one of roles. Admins always pass.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		if principal.IsAdmin() {
			c.Next()
			return
		}
		for _, r := range roles {
			if principal.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
	}
}

// PrincipalFrom returns the principal set by Authenticate.
func PrincipalFrom(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}
