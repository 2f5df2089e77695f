package auth

// #region imports
import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// #endregion imports

// #region middleware

// Context keys set by Middleware for downstream handlers.
const (
	CtxUser = "auth_user"
	CtxRole = "auth_role"
)

// Middleware rejects requests without a valid bearer token and stores
// the caller's identity on the gin context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := BearerToken(c.GetHeader("Authorization"))
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			return
		}
		claims, err := ParseJWT(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(CtxUser, claims.Username)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// Identity reads the authenticated user and role off the context.
func Identity(c *gin.Context) (user, role string) {
	return c.GetString(CtxUser), c.GetString(CtxRole)
}

// #endregion middleware
