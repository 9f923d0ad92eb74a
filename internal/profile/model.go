// File: internal/profile/model.go
package profile

import (
	"time"

	"instauto_backend/internal/common"
)

// Profile is the application record of a principal, keyed by the identity id
// issued by the session provider.
type Profile struct {
	ID            string       `gorm:"type:varchar(128);primaryKey"`
	Email         string       `gorm:"type:varchar(255);index"`
	Name          string       `gorm:"type:varchar(150);not null"`
	Role          common.Role  `gorm:"type:varchar(20);not null;index"`
	PlanType      *common.Plan `gorm:"type:varchar(10)"`
	PlanExpiresAt *time.Time   `gorm:"index"`
	Slug          *string      `gorm:"type:varchar(180);uniqueIndex"` // oficinas only
	Phone         *string      `gorm:"type:varchar(20)"`
	City          *string      `gorm:"type:varchar(100);index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName specifies the table name for the Profile model.
func (Profile) TableName() string {
	return "profiles"
}

// --- DTOs ---

// CreateProfileRequest completes sign-up. Admins are never self-assigned.
type CreateProfileRequest struct {
	Name  string      `json:"name" binding:"required,min=2,max=150"`
	Role  common.Role `json:"role" binding:"required,oneof=motorista oficina"`
	Phone *string     `json:"phone,omitempty" binding:"omitempty,e164"`
	City  *string     `json:"city,omitempty" binding:"omitempty,max=100"`
}

// UpdateProfileRequest carries the fields a principal may change on itself.
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" binding:"omitempty,min=2,max=150"`
	Phone *string `json:"phone,omitempty" binding:"omitempty,e164"`
	City  *string `json:"city,omitempty" binding:"omitempty,max=100"`
}

// SetPlanRequest is used by admins to change an oficina's plan.
type SetPlanRequest struct {
	Plan      common.Plan `json:"plan" binding:"required,oneof=free pro"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

// ProfileResponse is the owner/admin view of a profile.
type ProfileResponse struct {
	ID            string       `json:"id"`
	Email         string       `json:"email"`
	Name          string       `json:"name"`
	Role          common.Role  `json:"role"`
	PlanType      *common.Plan `json:"plan_type,omitempty"`
	PlanExpiresAt *time.Time   `json:"plan_expires_at,omitempty"`
	Slug          *string      `json:"slug,omitempty"`
	Phone         *string      `json:"phone,omitempty"`
	City          *string      `json:"city,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func ToProfileResponse(p *Profile) ProfileResponse {
	return ProfileResponse{
		ID:            p.ID,
		Email:         p.Email,
		Name:          p.Name,
		Role:          p.Role,
		PlanType:      p.PlanType,
		PlanExpiresAt: p.PlanExpiresAt,
		Slug:          p.Slug,
		Phone:         p.Phone,
		City:          p.City,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// OficinaPublicResponse is what anyone may see about an oficina.
type OficinaPublicResponse struct {
	Slug string      `json:"slug"`
	Name string      `json:"name"`
	City *string     `json:"city,omitempty"`
	Plan common.Plan `json:"plan"`
}

func ToOficinaPublicResponse(p *Profile, now time.Time) OficinaPublicResponse {
	resp := OficinaPublicResponse{
		Name: p.Name,
		City: p.City,
		Plan: ToShared(p).EffectivePlan(now),
	}
	if p.Slug != nil {
		resp.Slug = *p.Slug
	}
	return resp
}
