package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ekaramel/rentdesk/internal/httpapi"
	"github.com/ekaramel/rentdesk/internal/token"
)

// Context keys set by RequireAuth
const (
	ctxUserID   = "userID"
	ctxUserRole = "userRole"
)

// RequireAuth verifies the bearer access token and stores the caller's
// identity on the gin context.
func RequireAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			httpapi.Fail(c, http.StatusUnauthorized, "missing token")
			c.Abort()
			return
		}

		claims, err := token.ParseAccessToken(jwtSecret, strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			httpapi.Fail(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserRole, claims.Role)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated user has the role.
// Must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if MustRole(c) != role {
			httpapi.Fail(c, http.StatusForbidden, "insufficient role")
			c.Abort()
			return
		}
		c.Next()
	}
}

// MustUserID returns the authenticated user's ID. Panics if called on a
// route not behind RequireAuth.
func MustUserID(c *gin.Context) uint {
	v, _ := c.Get(ctxUserID)
	return v.(uint)
}

// MustRole returns the authenticated user's role.
func MustRole(c *gin.Context) string {
	v, _ := c.Get(ctxUserRole)
	return v.(string)
}
