package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// setSessionCookie hands the signed artifact to the client. HttpOnly,
// Secure and SameSite=Strict, scoped to the whole application path, with
// max-age equal to the session duration.
func setSessionCookie(c *gin.Context, name, artifact string, ttl time.Duration) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    artifact,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookie expires the session cookie. Callers revoke the
// credential first, so a retry with the old artifact during deletion
// cannot observe a still-valid session.
func clearSessionCookie(c *gin.Context, name string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}
