// File: internal/auth/handler.go
package auth

import (
	"errors"
	"io"
	"net/http"
	"time"

	"instauto_backend/internal/access"
	"instauto_backend/internal/bootstrap"
	"instauto_backend/internal/common"
	"instauto_backend/internal/session"
	"instauto_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DevTokenIssuer issues local development tokens.
type DevTokenIssuer interface {
	Issue(email string) (string, time.Time, error)
}

// CookieConfig controls the session cookie written for page requests.
type CookieConfig struct {
	Name   string
	Secure bool
}

// Handler struct holds dependencies for session handlers.
type Handler struct {
	sessions  session.Client
	hub       *session.Hub
	resolver  bootstrap.Resolver
	router    *access.Router
	devIssuer DevTokenIssuer
	cookie    CookieConfig
	logger    *zap.Logger
}

// NewHandler creates a new auth handler. devIssuer is nil unless the local
// session provider is active.
func NewHandler(
	sessions session.Client,
	hub *session.Hub,
	resolver bootstrap.Resolver,
	router *access.Router,
	devIssuer DevTokenIssuer,
	cookie CookieConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		sessions:  sessions,
		hub:       hub,
		resolver:  resolver,
		router:    router,
		devIssuer: devIssuer,
		cookie:    cookie,
		logger:    logger.Named("AuthHandler"),
	}
}

// RegisterRoutes sets up the routes for session operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, requireSession, requireProfile gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/session", h.signIn)
		authGroup.POST("/logout", requireSession, h.logout)
		authGroup.GET("/me", requireProfile, h.me)
		authGroup.GET("/watch", h.watch)
		if h.devIssuer != nil {
			authGroup.POST("/dev/token", h.devToken)
		}
	}
}

// signIn is called by the client after signing in with the identity
// provider. It stores the session cookie and reports the landing path.
func (h *Handler) signIn(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	ctx := c.Request.Context()
	if req.IDToken != "" {
		ctx = session.WithToken(ctx, req.IDToken)
	}

	res := h.resolver.Resolve(ctx)
	switch res.Status {
	case bootstrap.StatusCanceled:
		c.Abort()
		return
	case bootstrap.StatusUnauthenticated:
		common.RespondWithError(c, common.ErrUnauthenticated)
		return
	}

	if token, ok := session.TokenFromContext(ctx); ok {
		h.setSessionCookie(c, token)
	}

	if res.Status == bootstrap.StatusProfileNotFound {
		// The profile is created right after sign-up; the client completes it.
		common.RespondWithError(c, common.ErrProfileNotFound)
		return
	}

	h.hub.Publish(session.Event{Type: session.SignedIn, UID: res.Resolved.Identity.ID})
	common.RespondOK(c, "Session established.", SessionResponse{
		Identity:    shared.ToResolvedIdentityResponse(res.Resolved, time.Now()),
		LandingPath: h.router.LandingPath(res.Resolved),
	})
}

func (h *Handler) logout(c *gin.Context) {
	identity, ok := shared.IdentityFromContext(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthenticated)
		return
	}
	if err := h.sessions.SignOut(c.Request.Context(), identity.ID); err != nil {
		h.logger.Error("Sign out failed", zap.String("uid", identity.ID), zap.Error(err))
		common.RespondWithError(c, common.ErrServiceUnavailable.WithDetails("Could not end the session."))
		return
	}
	h.hub.Publish(session.Event{Type: session.SignedOut, UID: identity.ID})
	h.clearSessionCookie(c)
	common.RespondOK(c, "Signed out.", gin.H{"redirect_to": h.router.LoginPath()})
}

func (h *Handler) me(c *gin.Context) {
	resolved, ok := shared.ResolvedFromContext(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthenticated)
		return
	}
	common.RespondOK(c, "Identity resolved.", SessionResponse{
		Identity:    shared.ToResolvedIdentityResponse(resolved, time.Now()),
		LandingPath: h.router.LandingPath(resolved),
	})
}

// watch streams the caller's resolution state as server-sent events until
// the client disconnects.
func (h *Handler) watch(c *gin.Context) {
	tracker := bootstrap.NewTracker(h.resolver, h.hub, h.logger)
	tracker.Start(c.Request.Context())
	defer tracker.Close()

	done := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-tracker.Updates():
			if !ok {
				return false
			}
			c.SSEvent("state", h.view(snap))
			return true
		case <-done:
			return false
		}
	})
}

func (h *Handler) view(s bootstrap.Snapshot) SnapshotView {
	v := SnapshotView{Seq: s.Seq, Phase: string(s.Phase)}
	switch s.Phase {
	case bootstrap.PhaseResolved:
		v.Status = s.Status.String()
		v.Identity = shared.ToResolvedIdentityResponse(s.Resolved, time.Now())
		v.LandingPath = h.router.LandingPath(s.Resolved)
	case bootstrap.PhaseError:
		v.Status = s.Status.String()
		v.LandingPath = h.router.LoginPath()
	}
	return v
}

func (h *Handler) devToken(c *gin.Context) {
	var req DevTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	token, expiresAt, err := h.devIssuer.Issue(req.Email)
	if err != nil {
		h.logger.Warn("Dev token refused", zap.String("email", req.Email), zap.Error(err))
		common.RespondWithError(c, common.ErrUnauthenticated.WithDetails("Unknown development account."))
		return
	}
	h.setSessionCookie(c, token)
	common.RespondOK(c, "Development token issued.", DevTokenResponse{
		AccessToken: token,
		TokenType:   common.AuthorizationTypeBearer,
		ExpiresAt:   expiresAt,
	})
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	if h.cookie.Name == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, 0, "/", "", h.cookie.Secure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	if h.cookie.Name == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}
