// Package pages serves the role dashboards' bootstrap payloads behind page
// gates, plus a stream of gate transitions for client-side shells.
package pages

import (
	"context"
	"io"
	"net/http"
	"time"

	"instauto_backend/internal/access"
	"instauto_backend/internal/common"
	"instauto_backend/internal/middleware"
	"instauto_backend/internal/session"
	"instauto_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PagePayload is what the shell needs to render a protected page.
type PagePayload struct {
	Page        string                           `json:"page"`
	Identity    *shared.ResolvedIdentityResponse `json:"identity"`
	LandingPath string                           `json:"landing_path"`
}

// LoginPayload is served at the login entry point.
type LoginPayload struct {
	Page  string `json:"page"`
	Alert string `json:"alert,omitempty"`
	Next  string `json:"next,omitempty"`
}

// TransitionView is one event of the gate stream.
type TransitionView struct {
	State    access.GateState                 `json:"state"`
	Path     string                           `json:"path,omitempty"`
	Alert    access.AlertCode                 `json:"alert,omitempty"`
	Identity *shared.ResolvedIdentityResponse `json:"identity,omitempty"`
}

// Handler serves the page routes.
type Handler struct {
	factory *access.GateFactory
	routes  access.Routes
	events  session.Events
	logger  *zap.Logger
}

func NewHandler(factory *access.GateFactory, routes access.Routes, events session.Events, logger *zap.Logger) *Handler {
	return &Handler{
		factory: factory,
		routes:  routes,
		events:  events,
		logger:  logger.Named("Pages"),
	}
}

// RegisterRoutes mounts every declared page, the login entry point and the
// gate stream under api.
func (h *Handler) RegisterRoutes(root gin.IRouter, api *gin.RouterGroup) {
	for _, path := range h.routes.Paths() {
		root.GET(path, middleware.RequirePage(h.factory, path, h.routes[path]), h.page(path))
	}
	root.GET(h.factory.Router().LoginPath(), h.login)
	api.GET("/pages/watch", h.watch)
}

func (h *Handler) page(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		resolved, ok := shared.ResolvedFromContext(c)
		if !ok {
			common.RespondWithError(c, common.ErrUnauthenticated)
			return
		}
		common.RespondOK(c, "", PagePayload{
			Page:        path,
			Identity:    shared.ToResolvedIdentityResponse(resolved, time.Now()),
			LandingPath: h.factory.Router().LandingPath(resolved),
		})
	}
}

func (h *Handler) login(c *gin.Context) {
	common.RespondOK(c, "", LoginPayload{
		Page:  "login",
		Alert: c.Query("alert"),
		Next:  c.Query("next"),
	})
}

// clientNavigator leaves navigation to the client, which follows the path
// carried by each transition.
type clientNavigator struct{}

func (clientNavigator) Push(string)    {}
func (clientNavigator) Replace(string) {}

// watch runs a gate for the page named by ?path= and streams its
// transitions until it redirects, fails or the client goes away.
func (h *Handler) watch(c *gin.Context) {
	path := c.Query("path")
	req, ok := h.routes[path]
	if !ok {
		common.RespondWithError(c, common.ErrNotFound.WithDetails("Unknown page."))
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	transitions := make(chan access.Transition, 8)
	gate := h.factory.New(path, req, clientNavigator{}, nil)
	gate.OnTransition(func(t access.Transition) {
		select {
		case transitions <- t:
		case <-ctx.Done():
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		final := gate.Watch(ctx, h.events)
		h.logger.Debug("Page watch finished", zap.String("page", path), zap.String("state", string(final)))
	}()

	c.Status(http.StatusOK)
	c.Stream(func(w io.Writer) bool {
		select {
		case t := <-transitions:
			c.SSEvent("transition", view(t))
			return true
		case <-done:
			for {
				select {
				case t := <-transitions:
					c.SSEvent("transition", view(t))
				default:
					return false
				}
			}
		case <-ctx.Done():
			return false
		}
	})
	cancel()
	<-done
}

func view(t access.Transition) TransitionView {
	return TransitionView{
		State:    t.State,
		Path:     t.Path,
		Alert:    t.Alert,
		Identity: shared.ToResolvedIdentityResponse(t.Resolved, time.Now()),
	}
}
