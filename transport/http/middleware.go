package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/redlobsta/portalauth/core"
	"github.com/redlobsta/portalauth/service"
)

const credentialContextKey = "sessionCredential"

// AuthMiddleware creates middleware that validates the session cookie.
// Every verification failure collapses into the same 401 body: an
// unauthenticated caller learns nothing about why it was rejected.
func AuthMiddleware(authService *service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		artifact, err := c.Cookie(cookieName)
		if err != nil || artifact == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not_authenticated"})
			return
		}

		cred, err := authService.Authenticate(c.Request.Context(), artifact)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not_authenticated"})
			return
		}

		c.Set(credentialContextKey, cred)
		c.Next()
	}
}

// credentialFromContext returns the credential stored by AuthMiddleware.
func credentialFromContext(c *gin.Context) (*core.SessionCredential, bool) {
	v, exists := c.Get(credentialContextKey)
	if !exists {
		return nil, false
	}
	cred, ok := v.(*core.SessionCredential)
	return cred, ok
}
