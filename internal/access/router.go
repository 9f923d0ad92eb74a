// Package access decides whether a resolved identity may use a page or API
// group, and where it should be sent otherwise.
package access

import (
	"slices"
	"time"

	"instauto_backend/internal/common"
	"instauto_backend/internal/shared"
)

// LandingTable maps a profile to its canonical landing path.
type LandingTable struct {
	Motorista   string
	OficinaPro  string
	OficinaFree string
	Admin       string
	// Unresolved is the login entry point.
	Unresolved string
}

// DefaultLandingTable returns the production table with the given login path.
func DefaultLandingTable(loginPath string) LandingTable {
	if loginPath == "" {
		loginPath = "/login"
	}
	return LandingTable{
		Motorista:   "/motorista",
		OficinaPro:  "/dashboard",
		OficinaFree: "/oficina-basica",
		Admin:       "/admin",
		Unresolved:  loginPath,
	}
}

// PathFor returns the landing path for p. The plan is only considered for
// oficinas; an unknown role lands on the login entry point.
func (t LandingTable) PathFor(p shared.Profile, now time.Time) string {
	switch p.Role {
	case common.RoleMotorista:
		return t.Motorista
	case common.RoleOficina:
		if p.EffectivePlan(now) == common.PlanPro {
			return t.OficinaPro
		}
		return t.OficinaFree
	case common.RoleAdmin:
		return t.Admin
	}
	return t.Unresolved
}

// Requirement is the set of roles (and, for oficinas, plans) a route admits.
// An empty Roles list admits any resolved identity.
type Requirement struct {
	Roles []common.Role
	Plans []common.Plan
}

// Roles builds a requirement admitting the given roles.
func Roles(roles ...common.Role) Requirement {
	return Requirement{Roles: roles}
}

// AnyRole admits every resolved identity.
func AnyRole() Requirement {
	return Requirement{}
}

// WithPlans restricts the oficina members of r to the given plans.
func (r Requirement) WithPlans(plans ...common.Plan) Requirement {
	r.Plans = plans
	return r
}

// Admits reports whether p satisfies r at now.
func (r Requirement) Admits(p shared.Profile, now time.Time) bool {
	if len(r.Roles) > 0 && !slices.Contains(r.Roles, p.Role) {
		return false
	}
	if len(r.Plans) > 0 && p.Role == common.RoleOficina && !slices.Contains(r.Plans, p.EffectivePlan(now)) {
		return false
	}
	return true
}

// Outcome of an authorization.
type Outcome string

const (
	Authorized Outcome = "authorized"
	Redirect   Outcome = "redirect"
)

// Decision is the result of Authorize. Path is set for Redirect.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Path    string  `json:"path,omitempty"`
}

// Router authorizes resolved identities against requirements.
type Router struct {
	table LandingTable
	now   func() time.Time
}

func NewRouter(table LandingTable) *Router {
	return &Router{table: table, now: time.Now}
}

// WithClock returns a copy of the router reading time from now.
func (r *Router) WithClock(now func() time.Time) *Router {
	cp := *r
	cp.now = now
	return &cp
}

// Table returns the landing table.
func (r *Router) Table() LandingTable {
	return r.table
}

// LoginPath is the login entry point.
func (r *Router) LoginPath() string {
	return r.table.Unresolved
}

// LandingPath returns the canonical path for resolved, or the login path
// when resolved is nil.
func (r *Router) LandingPath(resolved *shared.ResolvedIdentity) string {
	if resolved == nil {
		return r.table.Unresolved
	}
	return r.table.PathFor(resolved.Profile, r.now())
}

// Authorize has no side effects: the same inputs give the same decision.
func (r *Router) Authorize(resolved *shared.ResolvedIdentity, req Requirement) Decision {
	if resolved == nil {
		return Decision{Outcome: Redirect, Path: r.table.Unresolved}
	}
	now := r.now()
	if req.Admits(resolved.Profile, now) {
		return Decision{Outcome: Authorized}
	}
	return Decision{Outcome: Redirect, Path: r.table.PathFor(resolved.Profile, now)}
}
