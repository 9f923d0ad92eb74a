package profile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"instauto_backend/internal/common"
	"instauto_backend/internal/session"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const maxSlugSuffix = 50

// Service defines the profile use cases.
type Service interface {
	Create(ctx context.Context, identity session.Identity, req CreateProfileRequest) (*Profile, error)
	Get(ctx context.Context, id string) (*Profile, error)
	UpdateMe(ctx context.Context, id string, req UpdateProfileRequest) (*Profile, error)
	SetPlan(ctx context.Context, id string, req SetPlanRequest) (*Profile, error)
	DowngradeExpiredPlans(ctx context.Context, now time.Time) ([]Profile, error)
	GetOficinaBySlug(ctx context.Context, slug string) (*Profile, error)
	ListOficinas(ctx context.Context, city string, page, pageSize int) ([]Profile, int64, error)
}

// Publisher receives profile change events.
type Publisher interface {
	Publish(e session.Event)
}

// OficinaIndexer keeps the oficina directory in sync. Optional.
type OficinaIndexer interface {
	IndexOficina(ctx context.Context, p *Profile) error
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo      Repository
	publisher Publisher
	indexer   OficinaIndexer
	logger    *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new profile service. indexer may be nil.
func NewService(repo Repository, publisher Publisher, indexer OficinaIndexer, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:      repo,
		publisher: publisher,
		indexer:   indexer,
		logger:    logger.Named("ProfileService"),
	}
}

// Create stores the profile of a freshly signed-up principal. Oficinas start
// on the free plan with a unique public handle derived from their name.
func (s *ServiceImplementation) Create(ctx context.Context, identity session.Identity, req CreateProfileRequest) (*Profile, error) {
	if req.Role != common.RoleMotorista && req.Role != common.RoleOficina {
		return nil, common.ErrUnprocessableEntity.WithDetails("Role must be motorista or oficina.")
	}

	_, err := s.repo.FindByID(ctx, identity.ID)
	if err == nil {
		return nil, common.ErrConflict.WithDetails("A profile already exists for this account.")
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing profile: %w", err)
	}

	p := &Profile{
		ID:    identity.ID,
		Email: identity.Email,
		Name:  strings.TrimSpace(req.Name),
		Role:  req.Role,
		Phone: req.Phone,
	}
	if req.City != nil {
		city := strings.TrimSpace(*req.City)
		p.City = &city
	}
	if p.Role == common.RoleOficina {
		free := common.PlanFree
		p.PlanType = &free
		handle, err := s.uniqueSlug(ctx, p.Name)
		if err != nil {
			return nil, err
		}
		p.Slug = &handle
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error("Failed to create profile", zap.Error(err), zap.String("uid", identity.ID))
		if apiErr, ok := common.IsAPIError(err); ok {
			return nil, apiErr
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.logger.Info("Profile created", zap.String("uid", p.ID), zap.String("role", string(p.Role)))
	s.changed(ctx, p)
	return p, nil
}

func (s *ServiceImplementation) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "oficina"
	}
	candidate := base
	for i := 2; i <= maxSlugSuffix; i++ {
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug availability: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
	return base + "-" + uuid.NewString()[:8], nil
}

func (s *ServiceImplementation) Get(ctx context.Context, id string) (*Profile, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateMe applies a principal's own changes. The public handle is kept
// stable across renames.
func (s *ServiceImplementation) UpdateMe(ctx context.Context, id string, req UpdateProfileRequest) (*Profile, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyUpdate(req, p)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.changed(ctx, p)
	return p, nil
}

// SetPlan changes an oficina's plan. A free plan never expires; a pro plan
// without ExpiresAt does not expire either.
func (s *ServiceImplementation) SetPlan(ctx context.Context, id string, req SetPlanRequest) (*Profile, error) {
	if !req.Plan.Valid() {
		return nil, common.ErrUnprocessableEntity.WithDetails("Plan must be free or pro.")
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role != common.RoleOficina {
		return nil, common.ErrUnprocessableEntity.WithDetails("Plans apply only to oficinas.")
	}

	plan := req.Plan
	p.PlanType = &plan
	p.PlanExpiresAt = nil
	if plan == common.PlanPro && req.ExpiresAt != nil {
		expires := req.ExpiresAt.UTC()
		p.PlanExpiresAt = &expires
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Oficina plan changed", zap.String("uid", p.ID), zap.String("plan", string(plan)))
	s.changed(ctx, p)
	return p, nil
}

// DowngradeExpiredPlans moves every oficina whose pro plan expired by now
// back to free. It returns the profiles it changed; failures on individual
// profiles are joined into the error.
func (s *ServiceImplementation) DowngradeExpiredPlans(ctx context.Context, now time.Time) ([]Profile, error) {
	expired, err := s.repo.FindExpiredProPlans(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired plans: %w", err)
	}

	var downgraded []Profile
	var errs []error
	for i := range expired {
		p := &expired[i]
		free := common.PlanFree
		p.PlanType = &free
		p.PlanExpiresAt = nil
		if err := s.repo.Update(ctx, p); err != nil {
			s.logger.Error("Failed to downgrade expired plan", zap.String("uid", p.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("downgrade %s: %w", p.ID, err))
			continue
		}
		s.changed(ctx, p)
		downgraded = append(downgraded, *p)
	}
	return downgraded, errors.Join(errs...)
}

func (s *ServiceImplementation) GetOficinaBySlug(ctx context.Context, handle string) (*Profile, error) {
	return s.repo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(handle)))
}

func (s *ServiceImplementation) ListOficinas(ctx context.Context, city string, page, pageSize int) ([]Profile, int64, error) {
	return s.repo.ListOficinas(ctx, city, page, pageSize)
}

// changed publishes the update and refreshes the directory entry.
func (s *ServiceImplementation) changed(ctx context.Context, p *Profile) {
	if s.publisher != nil {
		s.publisher.Publish(session.Event{Type: session.ProfileUpdated, UID: p.ID})
	}
	if s.indexer != nil && p.Role == common.RoleOficina {
		if err := s.indexer.IndexOficina(ctx, p); err != nil {
			s.logger.Warn("Failed to index oficina", zap.String("uid", p.ID), zap.Error(err))
		}
	}
}
