package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/redlobsta/portalauth/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, cookieName string, sessionTTL time.Duration) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(authService, cookieName, sessionTTL)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/magic-link", handlers.RequestMagicLink)
		auth.GET("/verify", handlers.Verify)
		auth.POST("/logout", handlers.Logout)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(authService, cookieName))
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
	}

	return router
}
