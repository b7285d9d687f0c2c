package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/scriptgate/internal/shared/id"
)

const (
	// SessionHeader carries the participant session id.
	SessionHeader = "X-Session-ID"
	// SessionCookie is the cookie fallback for SessionHeader.
	SessionCookie = "session_id"

	sessionKey = "session_id"
)

// Session resolves the participant session from the header or cookie and
// issues a new one when neither holds a well-formed id. The id is echoed in
// the response header and cookie.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetHeader(SessionHeader)
		if !id.HasPrefix(sid, id.SessionPrefix) {
			sid, _ = c.Cookie(SessionCookie)
		}
		if !id.HasPrefix(sid, id.SessionPrefix) {
			sid = id.NewSessionID().String()
		}

		c.Set(sessionKey, id.SessionID(sid))
		c.Header(SessionHeader, sid)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, sid, 0, "/", "", false, true)

		c.Next()
	}
}

// SessionID returns the session resolved by Session.
func SessionID(c *gin.Context) id.SessionID {
	if v, ok := c.Get(sessionKey); ok {
		if sid, ok := v.(id.SessionID); ok {
			return sid
		}
	}
	return ""
}
