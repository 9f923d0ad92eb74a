package access

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"instauto_backend/internal/common"
	"instauto_backend/internal/shared"
)

// Routes maps a page path to its requirement.
type Routes map[string]Requirement

// DefaultRoutes are the role dashboards served by the shell.
func DefaultRoutes() Routes {
	return Routes{
		"/motorista":      Roles(common.RoleMotorista),
		"/dashboard":      Roles(common.RoleOficina).WithPlans(common.PlanPro),
		"/oficina-basica": Roles(common.RoleOficina),
		"/admin":          Roles(common.RoleAdmin),
	}
}

// Paths returns the declared paths in lexical order.
func (r Routes) Paths() []string {
	paths := make([]string, 0, len(r))
	for p := range r {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// landingSubjects covers every row of the landing table.
var landingSubjects = []struct {
	name    string
	profile shared.Profile
}{
	{"motorista", shared.Profile{Role: common.RoleMotorista}},
	{"oficina/pro", shared.Profile{Role: common.RoleOficina, PlanType: planPtr(common.PlanPro)}},
	{"oficina/free", shared.Profile{Role: common.RoleOficina, PlanType: planPtr(common.PlanFree)}},
	{"oficina/unset", shared.Profile{Role: common.RoleOficina}},
	{"admin", shared.Profile{Role: common.RoleAdmin}},
}

// Validate checks that redirects through table terminate: every landing path
// must be a declared route admitting the profile sent there, and the login
// path must not be protected.
func (r Routes) Validate(table LandingTable) error {
	var errs []error
	now := time.Now()

	if table.Unresolved == "" {
		errs = append(errs, errors.New("landing table has no login path"))
	} else if _, protected := r[table.Unresolved]; protected {
		errs = append(errs, fmt.Errorf("login path %s must not be protected", table.Unresolved))
	}

	for _, s := range landingSubjects {
		path := table.PathFor(s.profile, now)
		if path == "" {
			errs = append(errs, fmt.Errorf("%s has no landing path", s.name))
			continue
		}
		req, ok := r[path]
		if !ok {
			errs = append(errs, fmt.Errorf("%s lands on %s, which is not a declared route", s.name, path))
			continue
		}
		if !req.Admits(s.profile, now) {
			errs = append(errs, fmt.Errorf("%s lands on %s, which does not admit it", s.name, path))
		}
	}
	return errors.Join(errs...)
}

func planPtr(p common.Plan) *common.Plan { return &p }
