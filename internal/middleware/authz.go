package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const msgAdminRequired = "Accès admin requis"

// RequireAdmin must run after RequireAuth. It trusts the admin flag carried
// by the token.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			// mounted without RequireAuth
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgTokenRequired})
			return
		}
		if !claims.Admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": msgAdminRequired})
			return
		}
		c.Next()
	}
}
