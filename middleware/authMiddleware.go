package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"posterminal/auth"
	"posterminal/models"
)

// IdentityKey is the gin context key holding the authenticated username.
const IdentityKey = "identity"

// AuthMiddleware rejects every request without a valid session with the same
// 401 body, whatever the route. A store fault is reported as such so that
// terminals are not told to log in again during an outage.
func AuthMiddleware(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := gate.Authenticate(c.Request)
		switch {
		case err == nil:
		case errors.Is(err, models.ErrUnauthenticated):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		case errors.Is(err, models.ErrStoreUnavailable):
			c.Error(err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable", "code": "store_unavailable"})
			return
		default:
			c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
			return
		}
		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// Identity returns the username set by AuthMiddleware.
func Identity(c *gin.Context) string {
	return c.GetString(IdentityKey)
}
