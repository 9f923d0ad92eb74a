// File: internal/profile/handler.go
package profile

import (
	"time"

	"instauto_backend/internal/common"
	"instauto_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for profile handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new profile handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("ProfileHandler"),
	}
}

// RegisterRoutes sets up the profile routes. requireSession admits any valid
// session, requireProfile any resolved identity and requireAdmin admins only.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, requireSession, requireProfile, requireAdmin gin.HandlerFunc) {
	profiles := router.Group("/profiles")
	{
		profiles.POST("", requireSession, h.create)
		profiles.GET("/me", requireProfile, h.getMe)
		profiles.PATCH("/me", requireProfile, h.updateMe)
	}

	admin := router.Group("/admin/profiles", requireAdmin)
	{
		admin.GET("/:id", h.getByID)
		admin.PUT("/:id/plan", h.setPlan)
	}

	oficinas := router.Group("/oficinas")
	{
		oficinas.GET("", h.listOficinas)
		oficinas.GET("/:slug", h.getOficina)
	}
}

func (h *Handler) create(c *gin.Context) {
	identity, ok := shared.IdentityFromContext(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthenticated)
		return
	}
	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create profile: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.Create(c.Request.Context(), identity, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Profile created successfully.", ToProfileResponse(p))
}

func (h *Handler) getMe(c *gin.Context) {
	resolved, ok := shared.ResolvedFromContext(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthenticated)
		return
	}
	p, err := h.service.Get(c.Request.Context(), resolved.Identity.ID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile retrieved successfully.", ToProfileResponse(p))
}

func (h *Handler) updateMe(c *gin.Context) {
	resolved, ok := shared.ResolvedFromContext(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthenticated)
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.UpdateMe(c.Request.Context(), resolved.Identity.ID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile updated successfully.", ToProfileResponse(p))
}

func (h *Handler) getByID(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile retrieved successfully.", ToProfileResponse(p))
}

func (h *Handler) setPlan(c *gin.Context) {
	var req SetPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.SetPlan(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if admin, ok := shared.ResolvedFromContext(c); ok {
		h.logger.Info("Plan set by admin",
			zap.String("admin_uid", admin.Identity.ID),
			zap.String("target_uid", p.ID),
			zap.String("plan", string(req.Plan)),
		)
	}
	common.RespondOK(c, "Plan updated successfully.", ToProfileResponse(p))
}

func (h *Handler) listOficinas(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)
	profiles, total, err := h.service.ListOficinas(c.Request.Context(), c.Query("city"), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	now := time.Now()
	out := make([]OficinaPublicResponse, len(profiles))
	for i := range profiles {
		out[i] = ToOficinaPublicResponse(&profiles[i], now)
	}
	common.RespondPaginated(c, "Oficinas retrieved successfully.", out, common.NewPagination(total, page, pageSize))
}

func (h *Handler) getOficina(c *gin.Context) {
	p, err := h.service.GetOficinaBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Oficina retrieved successfully.", ToOficinaPublicResponse(p, time.Now()))
}
