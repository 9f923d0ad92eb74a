package middleware

import (
	"net/http"
	"net/url"

	"instauto_backend/internal/access"
	"instauto_backend/internal/bootstrap"
	"instauto_backend/internal/common"
	"instauto_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequireAPI guards an API group. Failures are reported as JSON:
// 401 without a session, 409 when the profile is missing and 403 with the
// caller's landing path when the role does not match.
func RequireAPI(resolver bootstrap.Resolver, router *access.Router, req access.Requirement, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := resolver.Resolve(c.Request.Context())
		switch res.Status {
		case bootstrap.StatusCanceled:
			c.Abort()
			return
		case bootstrap.StatusUnauthenticated:
			common.RespondWithError(c, common.ErrUnauthenticated)
			return
		case bootstrap.StatusProfileNotFound:
			logger.Warn("Profile missing for API request", zap.Error(res.Err), zap.String("path", c.Request.URL.Path))
			common.RespondWithError(c, common.ErrProfileNotFound)
			return
		}

		if d := router.Authorize(res.Resolved, req); d.Outcome == access.Redirect {
			logger.Debug("Role not admitted",
				zap.String("uid", res.Resolved.Identity.ID),
				zap.String("role", string(res.Resolved.Profile.Role)),
				zap.String("path", c.Request.URL.Path),
			)
			common.RespondWithError(c, common.ErrForbidden.WithDetails(gin.H{"redirect_to": d.Path}))
			return
		}
		shared.SetResolved(c, res.Resolved)
		c.Next()
	}
}

// RequirePage guards a page served at path with a Gate. Redirects become
// 302 (replace) or 303 (push) responses; alerts travel in the alert query
// parameter of the target.
func RequirePage(factory *access.GateFactory, path string, req access.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		nav := &httpNavigator{c: c, loginPath: factory.Router().LoginPath()}
		gate := factory.New(path, req, nav, nav)

		if gate.Run(c.Request.Context()) != access.GateAuthorized {
			c.Abort()
			return
		}
		shared.SetResolved(c, gate.Resolved())
		c.Next()
	}
}

// httpNavigator turns gate navigations into HTTP redirects.
type httpNavigator struct {
	c         *gin.Context
	loginPath string
	alert     access.AlertCode
}

func (n *httpNavigator) Alert(code access.AlertCode) {
	n.alert = code
}

func (n *httpNavigator) Push(path string) {
	n.c.Redirect(http.StatusSeeOther, n.location(path))
}

func (n *httpNavigator) Replace(path string) {
	n.c.Redirect(http.StatusFound, n.location(path))
}

func (n *httpNavigator) location(path string) string {
	q := url.Values{}
	if n.alert != "" {
		q.Set("alert", string(n.alert))
	}
	if path == n.loginPath {
		q.Set("next", n.c.Request.URL.RequestURI())
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
