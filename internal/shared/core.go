package shared

import (
	"time"

	"instauto_backend/internal/common"
	"instauto_backend/internal/session"
)

// Profile is the application record describing a principal's role and plan.
// It is the storage-independent view consumed by bootstrap and access.
type Profile struct {
	ID            string
	Email         string
	Name          string
	Role          common.Role
	PlanType      *common.Plan
	PlanExpiresAt *time.Time
	Slug          *string
}

// EffectivePlan returns the plan that governs an oficina at now. A missing
// plan or an expired pro plan counts as free.
func (p Profile) EffectivePlan(now time.Time) common.Plan {
	if p.PlanType == nil {
		return common.PlanFree
	}
	if *p.PlanType == common.PlanPro && p.PlanExpiresAt != nil && !now.Before(*p.PlanExpiresAt) {
		return common.PlanFree
	}
	return *p.PlanType
}

// ResolvedIdentity pairs a session identity with its profile. It is never
// partially valid.
type ResolvedIdentity struct {
	Identity session.Identity
	Profile  Profile
}

// ResolvedIdentityResponse is the API view of a ResolvedIdentity.
type ResolvedIdentityResponse struct {
	ID            string       `json:"id"`
	Email         string       `json:"email"`
	Name          string       `json:"name"`
	Role          common.Role  `json:"role"`
	PlanType      *common.Plan `json:"plan_type,omitempty"`
	EffectivePlan common.Plan  `json:"effective_plan,omitempty"`
	PlanExpiresAt *time.Time   `json:"plan_expires_at,omitempty"`
	Slug          *string      `json:"slug,omitempty"`
}

// ToResolvedIdentityResponse converts r for API responses.
func ToResolvedIdentityResponse(r *ResolvedIdentity, now time.Time) *ResolvedIdentityResponse {
	if r == nil {
		return nil
	}
	resp := &ResolvedIdentityResponse{
		ID:            r.Identity.ID,
		Email:         r.Identity.Email,
		Name:          r.Profile.Name,
		Role:          r.Profile.Role,
		PlanType:      r.Profile.PlanType,
		PlanExpiresAt: r.Profile.PlanExpiresAt,
		Slug:          r.Profile.Slug,
	}
	if r.Profile.Role == common.RoleOficina {
		resp.EffectivePlan = r.Profile.EffectivePlan(now)
	}
	return resp
}
