package middleware

import (
	"strings"

	"github.com/Kyy487/ruangcerita/api/apierrors"
	"github.com/Kyy487/ruangcerita/services"

	"github.com/gin-gonic/gin"
)

const (
	SessionHeader = "X-Session-ID"

	ContextSessionID = "session_id"
	ContextAdminName = "admin_name"
)

// SessionMiddleware scopes user requests to one browser session. Browsers
// opening a WebSocket can not set headers, so the session query parameter
// is accepted as well.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionHeader)
		if sessionID == "" {
			sessionID = c.Query("session")
		}
		if strings.TrimSpace(sessionID) == "" {
			_ = c.Error(apierrors.BadRequest("X-Session-ID header is required"))
			c.Abort()
			return
		}
		c.Set(ContextSessionID, sessionID)
		c.Next()
	}
}

// AdminAuthMiddleware accepts "Authorization: Bearer <token>" or a token
// query parameter for WebSocket upgrades.
func AdminAuthMiddleware(auth *services.AdminAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				_ = c.Error(apierrors.Unauthorized("Invalid authorization header format"))
				c.Abort()
				return
			}
			token = parts[1]
		}
		if token == "" {
			_ = c.Error(apierrors.Unauthorized("Authorization header required"))
			c.Abort()
			return
		}

		claims, err := auth.Validate(token)
		if err != nil {
			_ = c.Error(apierrors.Unauthorized("Invalid or expired token"))
			c.Abort()
			return
		}
		c.Set(ContextAdminName, claims.Name)
		c.Next()
	}
}
