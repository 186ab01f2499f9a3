package http

import (
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/redlobsta/portalauth/core"
	"github.com/redlobsta/portalauth/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	cookieName  string
	sessionTTL  time.Duration
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, cookieName string, sessionTTL time.Duration) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		cookieName:  cookieName,
		sessionTTL:  sessionTTL,
	}
}

// RequestMagicLink handles the login request. The success response is
// identical whether or not the email has any accounts, so this endpoint
// cannot be used to probe which emails are registered.
func (h *AuthHandlers) RequestMagicLink(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}

	err := h.authService.RequestLogin(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, core.ErrRateLimited) {
			window := h.authService.Policy().Window
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many login attempts, try again later"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send login link"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Verify handles the magic-link callback. All failure modes redirect to
// the same login error page; the reason is only in the server logs.
func (h *AuthHandlers) Verify(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.Redirect(http.StatusFound, "/login?error=invalid_token")
		return
	}

	artifact, _, err := h.authService.Redeem(c.Request.Context(), token)
	if err != nil {
		c.Redirect(http.StatusFound, "/login?error=invalid_token")
		return
	}

	setSessionCookie(c, h.cookieName, artifact, h.sessionTTL)
	c.Redirect(http.StatusFound, "/dashboard")
}

// Logout revokes the session credential, then clears the cookie. Order
// matters: the blacklist entry must exist before the artifact disappears
// from the client.
func (h *AuthHandlers) Logout(c *gin.Context) {
	artifact, err := c.Cookie(h.cookieName)
	if err == nil && artifact != "" {
		if err := h.authService.Logout(c.Request.Context(), artifact); err != nil && !service.IsAuthFailure(err) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
			return
		}
	}

	clearSessionCookie(c, h.cookieName)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me returns the authenticated identity and its account IDs
func (h *AuthHandlers) Me(c *gin.Context) {
	cred, ok := credentialFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":       cred.Email,
		"account_ids": cred.AccountIDs,
		"expires_at":  cred.ExpiresAt.Unix(),
	})
}

// Authorize confirms the session is valid; reaching this handler means
// the middleware already verified it
func (h *AuthHandlers) Authorize(c *gin.Context) {
	cred, ok := credentialFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"email":      cred.Email,
	})
}
