package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pokequest/internal/authz"
)

const claimsKey = "auth_claims"

const (
	msgTokenRequired = "Token requis"
	msgTokenInvalid  = "Token invalide"
)

// RequireAuth resolves the bearer token into claims and stores them on the
// gin context. Preflight requests pass through untouched.
func RequireAuth(verifier authz.ClaimsVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		raw, err := authz.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortAuth(c, err)
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), raw)
		if err != nil {
			abortAuth(c, err)
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

func abortAuth(c *gin.Context, err error) {
	msg := msgTokenInvalid
	if authz.IsMissing(err) {
		msg = msgTokenRequired
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// ClaimsFrom returns the claims attached by RequireAuth.
func ClaimsFrom(c *gin.Context) (authz.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return authz.Claims{}, false
	}
	claims, ok := v.(authz.Claims)
	return claims, ok
}
