package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware verifies the Authorization header on every request and stashes
// the resulting claims in the request context.
func Middleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims, err := verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Request = c.Request.WithContext(WithUserClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// LocalDevMiddleware injects a fixed development user. Only wired when auth
// is explicitly skipped; never in production.
func LocalDevMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader("X-Debug-User-ID")
		if uid == "" {
			uid = "local-dev-user"
		}
		claims := &UserClaims{
			UID:      uid,
			Email:    uid + "@debug.local",
			Verified: true,
		}
		c.Request = c.Request.WithContext(WithUserClaims(c.Request.Context(), claims))
		c.Next()
	}
}
