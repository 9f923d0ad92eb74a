package access

import (
	"context"
	"sync"

	"instauto_backend/internal/bootstrap"
	"instauto_backend/internal/session"
	"instauto_backend/internal/shared"

	"go.uber.org/zap"
)

// GateState is the lifecycle of one protected page mount.
type GateState string

const (
	GateIdle        GateState = "idle"
	GateResolving   GateState = "resolving"
	GateAuthorized  GateState = "authorized"
	GateRedirecting GateState = "redirecting"
	GateFailed      GateState = "failed"
)

// AlertCode names a user-visible notice raised by a gate.
type AlertCode string

const (
	AlertProfileNotFound AlertCode = "profile_not_found"
	AlertAccessDenied    AlertCode = "access_denied"
	AlertMisconfigured   AlertCode = "misconfigured"
)

// Navigator schedules a view transition.
type Navigator interface {
	Push(path string)
	Replace(path string)
}

// Alerter shows a notice to the user.
type Alerter interface {
	Alert(code AlertCode)
}

// Transition is reported to the gate's observer on every state change.
type Transition struct {
	State    GateState                `json:"state"`
	Path     string                   `json:"path,omitempty"`
	Alert    AlertCode                `json:"alert,omitempty"`
	Resolved *shared.ResolvedIdentity `json:"-"`
}

// Gate guards one page mount.
type Gate struct {
	path     string
	req      Requirement
	resolver bootstrap.Resolver
	router   *Router
	nav      Navigator
	alerter  Alerter
	observe  func(Transition)
	logger   *zap.Logger

	mu       sync.Mutex
	state    GateState
	lastNav  string
	resolved *shared.ResolvedIdentity
}

// GateFactory builds gates sharing one resolver and router.
type GateFactory struct {
	resolver bootstrap.Resolver
	router   *Router
	logger   *zap.Logger
}

func NewGateFactory(resolver bootstrap.Resolver, router *Router, logger *zap.Logger) *GateFactory {
	return &GateFactory{resolver: resolver, router: router, logger: logger.Named("Gate")}
}

// Router returns the router the gates decide with.
func (f *GateFactory) Router() *Router {
	return f.router
}

// New creates an idle gate for the page at path. alerter may be nil.
func (f *GateFactory) New(path string, req Requirement, nav Navigator, alerter Alerter) *Gate {
	return &Gate{
		path:     path,
		req:      req,
		resolver: f.resolver,
		router:   f.router,
		nav:      nav,
		alerter:  alerter,
		logger:   f.logger.With(zap.String("page", path)),
		state:    GateIdle,
	}
}

// OnTransition registers fn to observe state changes. Call before Run.
func (g *Gate) OnTransition(fn func(Transition)) {
	g.observe = fn
}

// State returns the current state.
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Resolved returns the identity the gate authorized, if any.
func (g *Gate) Resolved() *shared.ResolvedIdentity {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != GateAuthorized {
		return nil
	}
	return g.resolved
}

// Run resolves the session in ctx and applies the outcome. When the
// resolution is cancelled the gate returns to the state it had before Run.
func (g *Gate) Run(ctx context.Context) GateState {
	g.mu.Lock()
	prev := g.state
	resolved := g.resolved
	g.mu.Unlock()

	g.transition(Transition{State: GateResolving})
	res := g.resolver.Resolve(ctx)
	if res.Status == bootstrap.StatusCanceled {
		t := Transition{State: prev}
		if prev == GateAuthorized {
			t.Resolved = resolved
		}
		g.transition(t)
		return prev
	}
	return g.Apply(res)
}

// Apply moves the gate to the state dictated by res. Navigation to the same
// path is never issued twice in a row; a cancelled result changes nothing.
func (g *Gate) Apply(res bootstrap.Result) GateState {
	switch res.Status {
	case bootstrap.StatusCanceled:
		return g.State()

	case bootstrap.StatusUnauthenticated:
		g.navigate(GateRedirecting, g.router.LoginPath(), "", false)

	case bootstrap.StatusProfileNotFound:
		g.logger.Warn("Profile missing for a valid session", zap.Error(res.Err))
		g.navigate(GateFailed, g.router.LoginPath(), AlertProfileNotFound, true)

	case bootstrap.StatusResolved:
		d := g.router.Authorize(res.Resolved, g.req)
		switch {
		case d.Outcome == Authorized:
			g.mu.Lock()
			g.lastNav = ""
			g.resolved = res.Resolved
			g.mu.Unlock()
			g.transition(Transition{State: GateAuthorized, Resolved: res.Resolved})
		case d.Path == g.path:
			// The landing page would reject its own role; redirecting would loop.
			g.logger.Error("Landing path rejects its own role",
				zap.String("uid", res.Resolved.Identity.ID),
				zap.String("role", string(res.Resolved.Profile.Role)),
			)
			g.navigate(GateFailed, g.router.LoginPath(), AlertMisconfigured, true)
		default:
			g.navigate(GateRedirecting, d.Path, AlertAccessDenied, false)
		}
	}
	return g.State()
}

func (g *Gate) navigate(state GateState, path string, alert AlertCode, push bool) {
	g.mu.Lock()
	duplicate := g.lastNav == path
	g.lastNav = path
	g.resolved = nil
	g.mu.Unlock()

	if duplicate {
		g.logger.Debug("Suppressing duplicate navigation", zap.String("to", path))
		g.transition(Transition{State: state, Path: path})
		return
	}
	if alert != "" && g.alerter != nil {
		g.alerter.Alert(alert)
	}
	if push {
		g.nav.Push(path)
	} else {
		g.nav.Replace(path)
	}
	g.transition(Transition{State: state, Path: path, Alert: alert})
}

func (g *Gate) transition(t Transition) {
	g.mu.Lock()
	g.state = t.State
	g.mu.Unlock()
	if g.observe != nil {
		g.observe(t)
	}
}

// Watch runs the gate and, while it stays authorized, runs it again on every
// auth event concerning the authorized principal. It returns once the gate
// redirects, fails or ctx is done.
func (g *Gate) Watch(ctx context.Context, events session.Events) GateState {
	trigger := make(chan struct{}, 1)
	unsubscribe := events.Subscribe(func(e session.Event) {
		if r := g.Resolved(); r != nil && e.UID != "" && e.UID != r.Identity.ID {
			return
		}
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	state := g.Run(ctx)
	for state == GateAuthorized {
		select {
		case <-ctx.Done():
			return state
		case <-trigger:
			state = g.Run(ctx)
		}
	}
	return state
}
