package middleware

import (
	"strings"

	"instauto_backend/internal/common"
	"instauto_backend/internal/session"
	"instauto_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Session makes the caller's ID token available to the session client. The
// token is read from a bearer Authorization header, falling back to the
// session cookie. Requests without a token pass through untouched.
func Session(cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c, cookieName); token != "" {
			c.Request = c.Request.WithContext(session.WithToken(c.Request.Context(), token))
		}
		c.Next()
	}
}

func extractToken(c *gin.Context, cookieName string) string {
	if header := c.GetHeader(common.AuthorizationHeader); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, common.AuthorizationTypeBearer) {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

// RequireSession admits any request with a valid session, profile or not.
func RequireSession(client session.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := client.GetSession(c.Request.Context())
		if err != nil || sess == nil {
			logger.Debug("Session required", zap.Error(err), zap.String("path", c.Request.URL.Path))
			common.RespondWithError(c, common.ErrUnauthenticated)
			return
		}
		shared.SetIdentity(c, sess.Identity())
		c.Next()
	}
}
