package profile

import (
	"strings"

	"instauto_backend/internal/shared"
)

// ToShared converts a GORM Profile to the storage-independent view.
func ToShared(p *Profile) *shared.Profile {
	if p == nil {
		return nil
	}
	return &shared.Profile{
		ID:            p.ID,
		Email:         p.Email,
		Name:          p.Name,
		Role:          p.Role,
		PlanType:      p.PlanType,
		PlanExpiresAt: p.PlanExpiresAt,
		Slug:          p.Slug,
	}
}

// applyUpdate copies the set fields of req onto p.
func applyUpdate(req UpdateProfileRequest, p *Profile) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		p.Phone = req.Phone
	}
	if req.City != nil {
		city := strings.TrimSpace(*req.City)
		p.City = &city
	}
}
