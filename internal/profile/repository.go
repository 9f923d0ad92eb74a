// File: internal/profile/repository.go
package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"instauto_backend/internal/common"

	"gorm.io/gorm"
)

// Repository defines the interface for profile data operations.
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	FindByID(ctx context.Context, id string) (*Profile, error)
	FindBySlug(ctx context.Context, slug string) (*Profile, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, p *Profile) error
	FindExpiredProPlans(ctx context.Context, now time.Time) ([]Profile, error)
	ListOficinas(ctx context.Context, city string, page, pageSize int) ([]Profile, int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM profile repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key value")
}

func (r *gormRepository) Create(ctx context.Context, p *Profile) error {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "slug") {
				return common.ErrConflict.WithDetails("An oficina with this public handle already exists.")
			}
			return common.ErrConflict.WithDetails("A profile already exists for this account.")
		}
		return err
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Profile not found.")
		}
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) FindBySlug(ctx context.Context, slug string) (*Profile, error) {
	var p Profile
	err := r.db.WithContext(ctx).
		Where("slug = ? AND role = ?", slug, common.RoleOficina).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Oficina not found.")
		}
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Profile{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormRepository) Update(ctx context.Context, p *Profile) error {
	err := r.db.WithContext(ctx).Save(p).Error
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrConflict.WithDetails("Update failed due to a conflicting public handle.")
		}
		return err
	}
	return nil
}

// FindExpiredProPlans returns pro oficinas whose plan expired at or before now.
func (r *gormRepository) FindExpiredProPlans(ctx context.Context, now time.Time) ([]Profile, error) {
	var profiles []Profile
	err := r.db.WithContext(ctx).
		Where("role = ? AND plan_type = ? AND plan_expires_at IS NOT NULL AND plan_expires_at <= ?",
			common.RoleOficina, common.PlanPro, now).
		Order("plan_expires_at ASC").
		Find(&profiles).Error
	return profiles, err
}

func (r *gormRepository) ListOficinas(ctx context.Context, city string, page, pageSize int) ([]Profile, int64, error) {
	query := r.db.WithContext(ctx).Model(&Profile{}).Where("role = ?", common.RoleOficina)
	if city = strings.TrimSpace(city); city != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(city))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var profiles []Profile
	err := query.
		Order("name ASC").
		Offset(common.Offset(page, pageSize)).
		Limit(pageSize).
		Find(&profiles).Error
	if err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}
